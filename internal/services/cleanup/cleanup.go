// Package cleanup runs the periodic retention sweep that deletes finished
// route searches and jobs.
package cleanup

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Func deletes records older than retentionDays and reports how many went
type Func func(ctx context.Context, retentionDays int) (int64, error)

// Service handles periodic retention cleanup
type Service struct {
	retentionDays   int
	cleanupInterval time.Duration
	log             *slog.Logger

	mu      sync.Mutex
	targets map[string]Func
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService creates a new cleanup service
func NewService(retentionDays int, cleanupInterval time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &Service{
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		log:             log.With("component", "cleanup"),
		targets:         make(map[string]Func),
	}
}

// Register adds a named target to every sweep
func (s *Service) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[name] = fn
}

// Start runs a sweep now and then every interval until Stop or ctx ends.
// A non-positive retention disables the service.
func (s *Service) Start(ctx context.Context) {
	if s.retentionDays <= 0 {
		s.log.Info("retention cleanup disabled")
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.RunOnce(ctx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.log.Info("cleanup service stopped")
				return
			}
		}
	}()

	s.log.Info("cleanup service started", "interval", s.cleanupInterval, "retention_days", s.retentionDays)
}

// Stop stops the cleanup service and waits for a running sweep
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce sweeps every target and returns the deleted count per target.
// A failing target is logged and does not stop the others.
func (s *Service) RunOnce(ctx context.Context) map[string]int64 {
	s.mu.Lock()
	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	targets := make(map[string]Func, len(s.targets))
	for k, v := range s.targets {
		targets[k] = v
	}
	s.mu.Unlock()
	sort.Strings(names)

	deleted := make(map[string]int64, len(names))
	for _, name := range names {
		n, err := targets[name](ctx, s.retentionDays)
		if err != nil {
			s.log.Warn("cleanup failed", "target", name, "error", err)
			continue
		}
		deleted[name] = n
		if n > 0 {
			s.log.Info("removed expired records", "target", name, "count", n)
		}
	}
	return deleted
}
