package types

import (
	"context"
	"log/slog"

	"github.com/killallgit/route-planner-api/internal/database"
	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
	"github.com/killallgit/route-planner-api/internal/services/planner"
	"github.com/killallgit/route-planner-api/internal/services/workers"
	"github.com/killallgit/route-planner-api/pkg/config"
)

// RouteService is the route search surface handlers depend on
type RouteService interface {
	planner.Dispatcher
	Get(ctx context.Context, id string) (*models.RouteSearch, error)
	List(ctx context.Context, status models.RouteSearchStatus, limit int) ([]*models.RouteSearch, error)
	Reset(ctx context.Context, id string) error
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB           *database.DB
	Config       *config.Config
	Logger       *slog.Logger
	Geocoder     geocoding.Geocoder
	Cache        cache.Cache
	RouteService RouteService
	JobService   jobs.Service
	WorkerPool   *workers.WorkerPool
}

// Log returns the configured logger or slog.Default
func (d *Dependencies) Log() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// MinQueryLength returns the configured minimum geocoding query length
func (d *Dependencies) MinQueryLength() int {
	if d == nil || d.Config == nil || d.Config.Search.MinQueryLength <= 0 {
		return 3
	}
	return d.Config.Search.MinQueryLength
}
