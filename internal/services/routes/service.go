// Package routes records route searches, queues them for the worker pool
// and estimates distance and travel time per vehicle category.
package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
	"github.com/killallgit/route-planner-api/internal/services/planner"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

// PayloadKey is the job payload field holding the route search id
const PayloadKey = "route_search_id"

// Service dispatches and tracks route searches
type Service struct {
	repo       Repository
	jobs       jobs.Service
	maxRetries int
	log        *slog.Logger
}

// NewService creates a route search service. maxRetries is the number of
// attempts each route_search job gets.
func NewService(repo Repository, jobService jobs.Service, maxRetries int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = jobs.DefaultMaxRetries
	}
	return &Service{
		repo:       repo,
		jobs:       jobService,
		maxRetries: maxRetries,
		log:        log.With("component", "routes"),
	}
}

var _ planner.Dispatcher = (*Service)(nil)

// SearchRoute validates req, stores a pending search and queues it. It
// returns as soon as the job is queued.
func (s *Service) SearchRoute(ctx context.Context, req planner.RouteRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	search := &models.RouteSearch{
		OriginLon:        req.LocationFrom[0],
		OriginLat:        req.LocationFrom[1],
		OriginTitle:      req.FromTitle,
		DestinationLon:   req.LocationTo[0],
		DestinationLat:   req.LocationTo[1],
		DestinationTitle: req.ToTitle,
		Category:         req.Category,
		Status:           models.RouteSearchPending,
	}
	if err := s.repo.Create(ctx, search); err != nil {
		return "", apperrors.DatabaseError("create route search", err)
	}

	job, err := s.jobs.EnqueueJob(ctx, models.JobTypeRouteSearch,
		models.JobPayload{PayloadKey: search.ID},
		jobs.WithMaxRetries(s.maxRetries),
		jobs.WithCreatedBy("routes"),
	)
	if err != nil {
		if failErr := s.repo.Fail(context.WithoutCancel(ctx), search.ID, "could not queue route search"); failErr != nil {
			s.log.Error("failed to mark route search failed", "id", search.ID, "error", failErr)
		}
		return "", apperrors.DatabaseError("enqueue route search", err)
	}

	if err := s.repo.SetJobID(ctx, search.ID, job.ID); err != nil {
		// the job is queued; only the back-reference is missing
		s.log.Warn("failed to link job to route search", "id", search.ID, "job_id", job.ID, "error", err)
	}

	s.log.Info("route search queued", "id", search.ID, "job_id", job.ID, "category", req.Category)
	return search.ID, nil
}

// Get returns a route search by id
func (s *Service) Get(ctx context.Context, id string) (*models.RouteSearch, error) {
	search, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRouteSearchNotFound) {
			return nil, apperrors.NotFound("route search", id)
		}
		return nil, apperrors.DatabaseError("get route search", err)
	}
	return search, nil
}

// List returns recent route searches, newest first
func (s *Service) List(ctx context.Context, status models.RouteSearchStatus, limit int) ([]*models.RouteSearch, error) {
	searches, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("list route searches", err)
	}
	return searches, nil
}

// Reset discards a route search and cancels its job if it has not run yet
func (s *Service) Reset(ctx context.Context, id string) error {
	search, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if search.JobID != nil {
		if err := s.jobs.CancelJob(ctx, *search.JobID); err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
			return apperrors.DatabaseError("cancel route search job", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRouteSearchNotFound) {
			return apperrors.NotFound("route search", id)
		}
		return apperrors.DatabaseError("delete route search", err)
	}

	s.log.Info("route search reset", "id", id)
	return nil
}

// Cleanup removes route searches older than retentionDays. Their jobs are
// swept separately by the job service.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	searches, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if searches > 0 {
		s.log.Info("deleted old route searches", "count", searches)
	}
	return searches, nil
}

// ValidateRequest checks positions and category of a route request
func ValidateRequest(req planner.RouteRequest) error {
	if !geocoding.FromLonLat(req.LocationFrom).Valid() {
		return apperrors.ValidationError("locationFrom", "must be [lon, lat] within WGS84 bounds")
	}
	if !geocoding.FromLonLat(req.LocationTo).Valid() {
		return apperrors.ValidationError("locationTo", "must be [lon, lat] within WGS84 bounds")
	}
	if !planner.ValidCategory(req.Category) {
		return apperrors.ValidationError("category", fmt.Sprintf("unknown vehicle category %d", req.Category))
	}
	return nil
}
