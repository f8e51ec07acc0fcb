package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/killallgit/route-planner-api/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flags and configuration
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	config.Reset()
	t.Cleanup(config.Reset)
	resetFlags(rootCmd)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// resetFlags undoes flag values left behind by earlier executions of the
// package-level command tree
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// writeConfig writes a settings file that keeps everything inside t's
// temp dir
func writeConfig(t *testing.T, extra string) (path, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "routes.db")
	path = filepath.Join(dir, "settings.yaml")

	content := fmt.Sprintf(`database:
  path: %q
cache:
  backend: memory
processing:
  workers: 1
  poll_interval: 10ms
logging:
  level: error
%s`, dbPath, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dbPath
}
