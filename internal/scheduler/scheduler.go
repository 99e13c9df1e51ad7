// Package scheduler retries the directory load in the background until it
// succeeds.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Loader is the part of directory.Cache the scheduler drives.
type Loader interface {
	LoadAll(ctx context.Context) error
	Loaded() bool
}

// Scheduler runs the load job every interval. The first run happens as soon
// as Start is called; once the directory is loaded each tick is a no-op.
type Scheduler struct {
	cron     *gocron.Scheduler
	loader   Loader
	interval time.Duration
	logger   *slog.Logger
}

func New(loader Loader, interval time.Duration, logger *slog.Logger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:     cron,
		loader:   loader,
		interval: interval,
		logger:   logger,
	}
}

// Start schedules the job and returns immediately. Jobs use ctx, so
// cancelling it aborts an in-flight load.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.Every(s.interval).Tag("directory-load").Do(s.loadIfNeeded, ctx); err != nil {
		return fmt.Errorf("scheduler: scheduling directory load: %w", err)
	}
	s.cron.StartAsync()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) loadIfNeeded(ctx context.Context) {
	if s.loader.Loaded() || ctx.Err() != nil {
		return
	}
	if err := s.loader.LoadAll(ctx); err != nil {
		s.logger.Warn("directory load attempt failed, will retry",
			slog.Duration("retryIn", s.interval),
			slog.String("error", err.Error()),
		)
	}
}
