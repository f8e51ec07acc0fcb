package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestRunOnce(t *testing.T) {
	s := NewService(7, time.Hour, logger.Discard())

	var gotDays int
	s.Register("route_searches", func(_ context.Context, days int) (int64, error) {
		gotDays = days
		return 3, nil
	})
	s.Register("jobs", func(context.Context, int) (int64, error) {
		return 0, errors.New("database is locked")
	})

	deleted := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int64{"route_searches": 3}, deleted)
	assert.Equal(t, 7, gotDays)
}

func TestStartStop(t *testing.T) {
	s := NewService(1, 10*time.Millisecond, logger.Discard())

	var runs atomic.Int32
	s.Register("jobs", func(context.Context, int) (int64, error) {
		runs.Add(1)
		return 0, nil
	})

	s.Start(context.Background())
	assert.GreaterOrEqual(t, runs.Load(), int32(1), "first sweep runs on start")
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	// second Stop is a no-op
	s.Stop()
}

func TestStart_Disabled(t *testing.T) {
	s := NewService(0, 10*time.Millisecond, logger.Discard())

	var runs atomic.Int32
	s.Register("jobs", func(context.Context, int) (int64, error) {
		runs.Add(1)
		return 0, nil
	})

	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, runs.Load())
}
