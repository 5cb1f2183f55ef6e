package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"news_tracker/internal/domain"
)

// Collector runs one collection cycle for a scheduling slot.
type Collector interface {
	Collect(ctx context.Context, scheduledFor time.Time) (*domain.CollectionRun, error)
}

// RunLog exposes the run history the scheduler needs for catch-up decisions.
type RunLog interface {
	LastSuccessful(ctx context.Context) (*domain.CollectionRun, error)
}

// Scheduler fires one collection cycle per daily slot at a fixed UTC hour.
// On startup it checks the run log and catches up immediately when the last
// successful slot is at least one interval old, so a process that was down
// over its slot still collects that day.
type Scheduler struct {
	collector Collector
	runs      RunLog
	hour      int
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	running bool

	now func() time.Time
}

func New(collector Collector, runs RunLog, hourUTC int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		collector: collector,
		runs:      runs,
		hour:      hourUTC,
		interval:  24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// currentSlot is the most recent daily slot at or before now.
func (s *Scheduler) currentSlot(now time.Time) time.Time {
	now = now.UTC()
	slot := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if slot.After(now) {
		slot = slot.Add(-s.interval)
	}
	return slot
}

func (s *Scheduler) nextSlot(now time.Time) time.Time {
	return s.currentSlot(now).Add(s.interval)
}

// Evaluate reports whether a catch-up cycle is due, and for which slot.
func (s *Scheduler) Evaluate(ctx context.Context) (time.Time, bool, error) {
	last, err := s.runs.LastSuccessful(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last successful run: %w", err)
	}

	now := s.now()
	if last == nil || now.UTC().Sub(last.ScheduledFor) >= s.interval {
		return s.currentSlot(now), true, nil
	}
	return time.Time{}, false, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "hour_utc", s.hour)

	slot, due, err := s.Evaluate(ctx)
	if err != nil {
		s.logger.Error("catch-up evaluation failed", "error", err)
	} else if due {
		s.logger.Info("catch-up cycle due", "slot", slot)
		s.runCycle(ctx, slot)
	}

	for {
		next := s.nextSlot(s.now())
		wait := next.Sub(s.now())
		s.logger.Debug("sleeping until next slot", "slot", next, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runCycle(ctx, next)
		}
	}
}

// RunNow triggers an immediate cycle for the current slot. Triggers arriving
// while a cycle is in flight coalesce into it.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runCycle(ctx, s.currentSlot(s.now()))
}

func (s *Scheduler) runCycle(ctx context.Context, slot time.Time) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("cycle already in progress, trigger ignored", "slot", slot)
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.collector.Collect(ctx, slot); err != nil {
		s.logger.Error("collection cycle failed", "slot", slot, "error", err)
	}
}
