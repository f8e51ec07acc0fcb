package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/route-planner-api/internal/database"
	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (Service, Repository, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "jobs.db"), database.Options{Logger: logger.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	repo := NewRepository(db.DB)
	return NewService(repo, logger.Discard()), repo, db
}

func routePayload(id string) models.JobPayload {
	return models.JobPayload{"route_search_id": id}
}

func TestEnqueueJob(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name           string
		opts           []JobOption
		wantPriority   int
		wantMaxRetries int
		wantCreatedBy  string
	}{
		{name: "defaults", wantPriority: DefaultPriority, wantMaxRetries: DefaultMaxRetries},
		{
			name:           "options applied",
			opts:           []JobOption{WithPriority(5), WithMaxRetries(1), WithCreatedBy("ws")},
			wantPriority:   5,
			wantMaxRetries: 1,
			wantCreatedBy:  "ws",
		},
		{name: "zero retries still allows one attempt", opts: []JobOption{WithMaxRetries(0)}, wantMaxRetries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload(tt.name), tt.opts...)
			require.NoError(t, err)
			assert.NotZero(t, job.ID)
			assert.Equal(t, models.JobStatusPending, job.Status)
			assert.Equal(t, tt.wantPriority, job.Priority)
			assert.Equal(t, tt.wantMaxRetries, job.MaxRetries)
			assert.Equal(t, tt.wantCreatedBy, job.CreatedBy)
		})
	}
}

func TestEnqueueUniqueJob(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.EnqueueUniqueJob(ctx, models.JobTypeRouteSearch, routePayload("abc"), "route_search_id")
	require.NoError(t, err)

	second, err := svc.EnqueueUniqueJob(ctx, models.JobTypeRouteSearch, routePayload("abc"), "route_search_id")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "active job is reused")

	require.NoError(t, svc.CancelJob(ctx, first.ID))

	third, err := svc.EnqueueUniqueJob(ctx, models.JobTypeRouteSearch, routePayload("abc"), "route_search_id")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID, "terminal job is not reused")

	_, err = svc.EnqueueUniqueJob(ctx, models.JobTypeRouteSearch, routePayload("abc"), "missing")
	assert.Error(t, err)
}

func TestGetJobForRouteSearch(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("route-1"))
	require.NoError(t, err)

	found, err := svc.GetJobForRouteSearch(ctx, "route-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	_, err = svc.GetJobForRouteSearch(ctx, "route-2")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.GetJob(ctx, 9999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestClaimNextJob(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.ClaimNextJob(ctx, "w1", []models.JobType{models.JobTypeRouteSearch})
	assert.ErrorIs(t, err, ErrNoJobsAvailable)

	low, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("low"))
	require.NoError(t, err)
	high, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("high"), WithPriority(10))
	require.NoError(t, err)

	claimed, err := svc.ClaimNextJob(ctx, "w1", []models.JobType{models.JobTypeRouteSearch})
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.Equal(t, "w1", claimed.WorkerID)
	assert.NotNil(t, claimed.StartedAt)

	claimed, err = svc.ClaimNextJob(ctx, "w2", nil)
	require.NoError(t, err)
	assert.Equal(t, low.ID, claimed.ID)

	_, err = svc.ClaimNextJob(ctx, "w1", []models.JobType{models.JobTypeRouteSearch})
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestClaimNextJob_FiltersTypes(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("x"))
	require.NoError(t, err)

	_, err = svc.ClaimNextJob(ctx, "w1", []models.JobType{"other"})
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestJobLifecycle_Complete(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("done"))
	require.NoError(t, err)
	_, err = svc.ClaimNextJob(ctx, "w1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateProgress(ctx, job.ID, 150))
	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress, "progress is clamped")

	require.NoError(t, svc.CompleteJob(ctx, job.ID, models.JobResult{"distance_km": 12.5}))

	status, err := svc.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, status)

	got, err = svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Result["distance_km"])
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, svc.UpdateProgress(ctx, job.ID, 10), ErrJobNotFound, "only processing jobs take progress")
}

func TestFailJobWithDetails(t *testing.T) {
	tests := []struct {
		name        string
		maxRetries  int
		errorType   models.JobErrorType
		wantStatus  models.JobStatus
		wantRetries int
	}{
		{name: "retryable processing error", maxRetries: 3, errorType: models.ErrorTypeProcessing, wantStatus: models.JobStatusFailed, wantRetries: 1},
		{name: "last attempt", maxRetries: 1, errorType: models.ErrorTypeSystem, wantStatus: models.JobStatusPermanentlyFailed, wantRetries: 1},
		{name: "validation never retries", maxRetries: 3, errorType: models.ErrorTypeValidation, wantStatus: models.JobStatusPermanentlyFailed, wantRetries: 1},
		{name: "not found never retries", maxRetries: 3, errorType: models.ErrorTypeNotFound, wantStatus: models.JobStatusPermanentlyFailed, wantRetries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setupService(t)
			ctx := context.Background()

			job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("f"), WithMaxRetries(tt.maxRetries))
			require.NoError(t, err)
			_, err = svc.ClaimNextJob(ctx, "w1", nil)
			require.NoError(t, err)

			require.NoError(t, svc.FailJobWithDetails(ctx, job.ID, tt.errorType, "code", "boom", "details"))

			got, err := svc.GetJob(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantRetries, got.RetryCount)
			assert.Equal(t, string(tt.errorType), got.ErrorType)
			assert.Equal(t, "code", got.ErrorCode)
			assert.Equal(t, "boom", got.Error)
			assert.Empty(t, got.WorkerID)
			assert.NotNil(t, got.LastFailedAt)
		})
	}
}

func TestFailedJobIsReclaimedWithoutExtraRetryCount(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("retry"), WithMaxRetries(2))
	require.NoError(t, err)

	_, err = svc.ClaimNextJob(ctx, "w1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, job.ID, errors.New("transient")))

	again, err := svc.ClaimNextJob(ctx, "w1", nil)
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 1, again.RetryCount)

	require.NoError(t, svc.FailJob(ctx, job.ID, errors.New("transient")))
	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, got.Status)
	assert.Equal(t, string(models.ErrorTypeSystem), got.ErrorType)

	_, err = svc.ClaimNextJob(ctx, "w1", nil)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestReleaseJob(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("rel"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ReleaseJob(ctx, job.ID), ErrJobNotFound, "pending job cannot be released")

	_, err = svc.ClaimNextJob(ctx, "w1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseJob(ctx, job.ID))

	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Empty(t, got.WorkerID)
	assert.Nil(t, got.StartedAt)
}

func TestCancelJob(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeRouteSearch, routePayload("c"))
	require.NoError(t, err)

	require.NoError(t, svc.CancelJob(ctx, job.ID))
	status, err := svc.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, status)

	assert.ErrorIs(t, svc.CancelJob(ctx, job.ID), ErrJobNotFound, "terminal job cannot be cancelled")

	_, err = svc.ClaimNextJob(ctx, "w1", nil)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestCleanupOldJobs(t *testing.T) {
	svc, _, db := setupService(t)
	ctx := context.Background()

	_, err := svc.CleanupOldJobs(ctx, 0)
	assert.Error(t, err)

	old := time.Now().AddDate(0, 0, -10)
	jobs := []*models.Job{
		{Type: models.JobTypeRouteSearch, Status: models.JobStatusCompleted, MaxRetries: 1},
		{Type: models.JobTypeRouteSearch, Status: models.JobStatusPermanentlyFailed, MaxRetries: 1},
		{Type: models.JobTypeRouteSearch, Status: models.JobStatusPending, MaxRetries: 1},
	}
	for _, j := range jobs {
		require.NoError(t, db.Create(j).Error)
		require.NoError(t, db.Model(j).UpdateColumn("created_at", old).Error)
	}
	recent := &models.Job{Type: models.JobTypeRouteSearch, Status: models.JobStatusCompleted, MaxRetries: 1}
	require.NoError(t, db.Create(recent).Error)

	deleted, err := svc.CleanupOldJobs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.Job{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}
