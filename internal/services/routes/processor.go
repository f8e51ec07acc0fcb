package routes

import (
	"context"
	"errors"
	"log/slog"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
)

// Processor runs route_search jobs for the worker pool
type Processor struct {
	repo      Repository
	jobs      jobs.Service
	estimator *Estimator
	log       *slog.Logger
}

// NewProcessor creates a route_search job processor
func NewProcessor(repo Repository, jobService jobs.Service, estimator *Estimator, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	if estimator == nil {
		estimator = NewEstimator()
	}
	return &Processor{
		repo:      repo,
		jobs:      jobService,
		estimator: estimator,
		log:       log.With("component", "route_processor"),
	}
}

// JobTypes reports the job types this processor handles
func (p *Processor) JobTypes() []models.JobType {
	return []models.JobType{models.JobTypeRouteSearch}
}

// ProcessJob estimates the route of the search named in the job payload
func (p *Processor) ProcessJob(ctx context.Context, job *models.Job) error {
	id, ok := job.GetPayloadString(PayloadKey)
	if !ok || id == "" {
		return models.NewValidationError("missing_search_id", "job payload has no route search id", "", nil)
	}
	log := p.log.With("job_id", job.ID, "route_search_id", id)

	search, err := p.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRouteSearchNotFound) {
			return models.NewNotFoundError("missing_search", "route search no longer exists", id, err)
		}
		return p.systemError(ctx, job, id, "load_search", err)
	}

	if search.Status == models.RouteSearchCompleted {
		log.Debug("route search already completed")
		return p.complete(ctx, job, search)
	}

	if err := p.repo.MarkProcessing(ctx, id); err != nil {
		return p.systemError(ctx, job, id, "mark_processing", err)
	}
	if err := p.jobs.UpdateProgress(ctx, job.ID, 50); err != nil {
		log.Warn("failed to update job progress", "error", err)
	}

	from := geocoding.Coordinates{Lon: search.OriginLon, Lat: search.OriginLat}
	to := geocoding.Coordinates{Lon: search.DestinationLon, Lat: search.DestinationLat}
	estimate, err := p.estimator.Estimate(from, to, search.Category)
	if err != nil {
		if failErr := p.repo.Fail(ctx, id, err.Error()); failErr != nil {
			log.Error("failed to mark route search failed", "error", failErr)
		}
		return models.NewValidationError("estimate_failed", err.Error(), "", err)
	}

	if err := p.repo.Complete(ctx, id, estimate); err != nil {
		return p.systemError(ctx, job, id, "store_result", err)
	}
	search.DistanceKm = &estimate.DistanceKm
	search.DurationMinutes = &estimate.DurationMinutes

	log.Info("route estimated", "distance_km", estimate.DistanceKm, "duration_minutes", estimate.DurationMinutes)
	return p.complete(ctx, job, search)
}

func (p *Processor) complete(ctx context.Context, job *models.Job, search *models.RouteSearch) error {
	result := models.JobResult{PayloadKey: search.ID}
	if search.DistanceKm != nil {
		result["distance_km"] = *search.DistanceKm
	}
	if search.DurationMinutes != nil {
		result["duration_minutes"] = *search.DurationMinutes
	}
	if err := p.jobs.CompleteJob(ctx, job.ID, result); err != nil {
		return models.NewSystemError("complete_job", "failed to complete job", "", err)
	}
	return nil
}

// systemError fails the search once the job has no attempts left, so the
// search never stays processing after its job gave up
func (p *Processor) systemError(ctx context.Context, job *models.Job, id, code string, err error) error {
	if job.RetryCount+1 >= job.MaxRetries && ctx.Err() == nil {
		if failErr := p.repo.Fail(ctx, id, err.Error()); failErr != nil && !errors.Is(failErr, ErrRouteSearchNotFound) {
			p.log.Error("failed to mark route search failed", "route_search_id", id, "error", failErr)
		}
	}
	return models.NewSystemError(code, err.Error(), "", err)
}
