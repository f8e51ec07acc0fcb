package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/planner"
	"github.com/killallgit/route-planner-api/pkg/config"
	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)

	require.NoError(t, config.InitFile(path))
	cfg, err := config.GetConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuildApplication_RouteSearch(t *testing.T) {
	path, _ := writeConfig(t, "")
	cfg := loadTestConfig(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildApplication(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.close()) }()

	require.NotNil(t, app.deps.Geocoder)
	require.NotNil(t, app.deps.RouteService)
	assert.Equal(t, 1, app.workers.Size())

	require.NoError(t, app.start(ctx))

	id, err := app.deps.RouteService.SearchRoute(ctx, planner.RouteRequest{
		LocationFrom: [2]float64{-74.0721, 4.7110},
		LocationTo:   [2]float64{-75.5812, 6.2442},
		Category:     0,
	})
	require.NoError(t, err)

	var search *models.RouteSearch
	require.Eventually(t, func() bool {
		search, err = app.deps.RouteService.Get(ctx, id)
		return err == nil && search.Status == models.RouteSearchCompleted
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, search.DistanceKm)
	require.NotNil(t, search.DurationMinutes)
	assert.Greater(t, *search.DistanceKm, 150.0)
	assert.Greater(t, *search.DurationMinutes, 0.0)

	// fresh records survive the sweep and each target reports its own count
	assert.Equal(t, map[string]int64{"jobs": 0, "route_searches": 0}, app.cleanup.RunOnce(ctx))
}

func TestBuildApplication_BadCache(t *testing.T) {
	path, _ := writeConfig(t, "")
	cfg := loadTestConfig(t, path)
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisURL = "not a url"

	_, err := buildApplication(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
}
