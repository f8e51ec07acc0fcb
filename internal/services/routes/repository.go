package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/route-planner-api/internal/models"
	"gorm.io/gorm"
)

// ErrRouteSearchNotFound is returned when no search has the requested id
var ErrRouteSearchNotFound = errors.New("route search not found")

// Repository persists route searches
type Repository interface {
	Create(ctx context.Context, search *models.RouteSearch) error
	Get(ctx context.Context, id string) (*models.RouteSearch, error)
	List(ctx context.Context, status models.RouteSearchStatus, limit int) ([]*models.RouteSearch, error)
	SetJobID(ctx context.Context, id string, jobID uint) error
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, estimate Estimate) error
	Fail(ctx context.Context, id string, reason string) error
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed route search repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, search *models.RouteSearch) error {
	if search.Status == "" {
		search.Status = models.RouteSearchPending
	}
	if err := r.db.WithContext(ctx).Create(search).Error; err != nil {
		return fmt.Errorf("creating route search: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*models.RouteSearch, error) {
	var search models.RouteSearch
	err := r.db.WithContext(ctx).First(&search, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteSearchNotFound
		}
		return nil, fmt.Errorf("getting route search: %w", err)
	}
	return &search, nil
}

// List returns the newest searches, optionally filtered by status
func (r *repository) List(ctx context.Context, status models.RouteSearchStatus, limit int) ([]*models.RouteSearch, error) {
	var searches []*models.RouteSearch
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&searches).Error; err != nil {
		return nil, fmt.Errorf("listing route searches: %w", err)
	}
	return searches, nil
}

func (r *repository) SetJobID(ctx context.Context, id string, jobID uint) error {
	return r.update(ctx, id, nil, map[string]any{"job_id": jobID})
}

// MarkProcessing moves a pending search to processing. Searches that are
// already processing are left as they are so a retried job can continue.
func (r *repository) MarkProcessing(ctx context.Context, id string) error {
	return r.update(ctx, id,
		[]models.RouteSearchStatus{models.RouteSearchPending, models.RouteSearchProcessing},
		map[string]any{"status": models.RouteSearchProcessing})
}

func (r *repository) Complete(ctx context.Context, id string, estimate Estimate) error {
	now := time.Now()
	return r.update(ctx, id, nil, map[string]any{
		"status":           models.RouteSearchCompleted,
		"distance_km":      estimate.DistanceKm,
		"duration_minutes": estimate.DurationMinutes,
		"error":            "",
		"completed_at":     &now,
	})
}

func (r *repository) Fail(ctx context.Context, id string, reason string) error {
	now := time.Now()
	return r.update(ctx, id, nil, map[string]any{
		"status":       models.RouteSearchFailed,
		"error":        reason,
		"completed_at": &now,
	})
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.RouteSearch{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting route search: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRouteSearchNotFound
	}
	return nil
}

// DeleteOlderThan removes finished searches created before olderThan
func (r *repository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Where("status IN ?", []models.RouteSearchStatus{models.RouteSearchCompleted, models.RouteSearchFailed}).
		Delete(&models.RouteSearch{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting old route searches: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *repository) update(ctx context.Context, id string, from []models.RouteSearchStatus, updates map[string]any) error {
	query := r.db.WithContext(ctx).Model(&models.RouteSearch{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating route search: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRouteSearchNotFound
	}
	return nil
}
