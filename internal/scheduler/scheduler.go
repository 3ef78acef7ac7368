// Package scheduler runs the weekly sweep that regenerates every stored
// industry insight on a cron spec.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// InsightRefresher regenerates all stored industry insights and reports
// how many were refreshed.
type InsightRefresher interface {
	RefreshAllInsights(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and owns the insight refresh sweep.
type Scheduler struct {
	cron      *cron.Cron
	refresher InsightRefresher
	spec      string
	running   atomic.Bool
}

// New creates a Scheduler firing on the given standard cron spec,
// e.g. "0 0 * * 0" for midnight every Sunday.
func New(refresher InsightRefresher, spec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		spec:      spec,
	}
}

// Start registers the sweep and starts the cron loop. The sweep never
// runs at startup; a fresh deploy waits for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	slog.Info("insight sweep scheduled", "spec", s.spec)
	return nil
}

// Stop shuts down the cron loop. A sweep already in flight finishes on
// its own goroutine.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("insight sweep stopped")
}

// RunOnce executes a single sweep. Overlapping runs are skipped: if a
// slow sweep is still going when the next tick (or a manual trigger)
// arrives, the new run is dropped rather than queued.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("insight sweep already running, skipping")
		return 0, nil
	}
	defer s.running.Store(false)

	slog.Info("insight sweep started")
	refreshed, err := s.refresher.RefreshAllInsights(ctx)
	if err != nil {
		slog.Error("insight sweep failed", "refreshed", refreshed, "err", err)
		return refreshed, err
	}
	slog.Info("insight sweep complete", "refreshed", refreshed)
	return refreshed, nil
}
