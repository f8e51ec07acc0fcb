package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHelp(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
	}{
		{"migrate command with help", []string{"migrate", "--help"}, "Manage the database schema"},
		{"migrate up subcommand", []string{"migrate", "up", "--help"}, "Create missing tables"},
		{"migrate status subcommand", []string{"migrate", "status", "--help"}, "Display the current status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.expectedOutput)
		})
	}
}

func TestMigrateUpAndStatus(t *testing.T) {
	path, _ := writeConfig(t, "")

	out, err := execute(t, "migrate", "--config", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "jobs")
	assert.Contains(t, out, "missing")

	out, err = execute(t, "migrate", "--config", path, "up", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would migrate route_searches")

	out, err = execute(t, "migrate", "--config", path, "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2 tables")

	out, err = execute(t, "migrate", "--config", path, "status")
	require.NoError(t, err)
	assert.Regexp(t, `route_searches\s+ok \(0 rows\)`, out)
	assert.Contains(t, out, "Schema is up to date")
}
