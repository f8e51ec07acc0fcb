package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/database"
	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/killallgit/route-planner-api/internal/services/cleanup"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
	"github.com/killallgit/route-planner-api/internal/services/routes"
	"github.com/killallgit/route-planner-api/internal/services/workers"
	"github.com/killallgit/route-planner-api/pkg/config"
)

const retentionSweepInterval = time.Hour

// application is everything serve wires together
type application struct {
	deps    *types.Dependencies
	db      *database.DB
	cache   cache.Cache
	workers *workers.WorkerPool
	cleanup *cleanup.Service
	log     *slog.Logger
}

func openDatabase(cfg *config.Config, log *slog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database.Path, database.Options{
		Verbose:               cfg.Database.Verbose,
		MaxConnections:        cfg.Database.MaxConnections,
		MaxIdleConnections:    cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: cfg.Database.ConnectionMaxLifetime,
		Logger:                log.With("component", "database"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newGeocoder(cfg *config.Config, c cache.Cache, log *slog.Logger) geocoding.Geocoder {
	client := geocoding.NewNominatimClient(geocoding.Config{
		BaseURL:      cfg.Geocoding.BaseURL,
		UserAgent:    cfg.Geocoding.UserAgent,
		Timeout:      cfg.Geocoding.Timeout,
		RateLimit:    cfg.Geocoding.RateLimit,
		Burst:        cfg.Geocoding.Burst,
		Limit:        cfg.Geocoding.Limit,
		Language:     cfg.Geocoding.Language,
		CountryCodes: cfg.Geocoding.CountryCodes,
		Logger:       log.With("component", "nominatim"),
	})
	if c == nil {
		return client
	}
	return geocoding.NewCachedGeocoder(client, c, cfg.Cache.GeocodeTTL, cfg.Geocoding.Timeout+5*time.Second, log)
}

// buildApplication opens the database and cache, migrates, and wires the
// route search pipeline. Nothing is started.
func buildApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		_ = db.Close()
		return nil, err
	}

	c, err := cache.New(ctx, cfg.Cache, log.With("component", "cache"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	jobService := jobs.NewService(jobs.NewRepository(db.DB), log)
	routeRepo := routes.NewRepository(db.DB)
	routeService := routes.NewService(routeRepo, jobService, cfg.Processing.MaxRetries, log)

	pool := workers.NewWorkerPool(jobService, cfg.Processing.Workers, cfg.Processing.PollInterval, log)
	pool.RegisterProcessor(routes.NewProcessor(routeRepo, jobService, routes.NewEstimator(), log))

	sweeper := cleanup.NewService(cfg.Processing.RetentionDays, retentionSweepInterval, log)
	sweeper.Register("route_searches", routeService.Cleanup)
	sweeper.Register("jobs", jobService.CleanupOldJobs)

	return &application{
		deps: &types.Dependencies{
			DB:           db,
			Config:       cfg,
			Logger:       log,
			Geocoder:     newGeocoder(cfg, c, log),
			Cache:        c,
			RouteService: routeService,
			JobService:   jobService,
			WorkerPool:   pool,
		},
		db:      db,
		cache:   c,
		workers: pool,
		cleanup: sweeper,
		log:     log,
	}, nil
}

// start launches the background workers and the retention sweep
func (a *application) start(ctx context.Context) error {
	if err := a.workers.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	a.cleanup.Start(ctx)
	return nil
}

// close stops background work and releases connections
func (a *application) close() error {
	a.cleanup.Stop()
	a.workers.Stop()

	var errs []error
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing cache: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}
