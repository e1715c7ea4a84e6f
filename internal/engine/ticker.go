package engine

import (
	"context"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
)

// Scheduler runs a task forever at a fixed interval.
// The next run is armed only after the previous one returns, so a slow task
// delays the schedule instead of overlapping with itself.
type Scheduler struct {
	name      string
	interval  time.Duration
	immediate bool
	task      func()
	logger    *logger.Logger
}

// NewScheduler creates a scheduler. When immediate is true the first run
// happens at once instead of after one interval.
func NewScheduler(name string, interval time.Duration, immediate bool, task func(), log *logger.Logger) *Scheduler {
	return &Scheduler{
		name:      name,
		interval:  interval,
		immediate: immediate,
		task:      task,
		logger:    log,
	}
}

// Run blocks until ctx is cancelled. Call in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started: " + s.name + " every " + s.interval.String())

	first := s.interval
	if s.immediate {
		first = 0
	}
	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped by context: " + s.name)
			return
		case <-timer.C:
			s.task()
			timer.Reset(s.interval)
		}
	}
}
