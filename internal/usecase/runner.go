package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cristianleoo/influencerpy/internal/ports"
)

// Runner wires the cron-like driver with the pipeline: on every trigger it
// runs all stored scouts and routes results to the delivery channel.
type Runner struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	scouts   ports.ScoutStore
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewRunner returns a helper to start/stop recurring scout runs.
func NewRunner(driver ports.Scheduler, pipeline *Pipeline, scouts ports.ScoutStore, notifier ports.Notifier, logger *slog.Logger) *Runner {
	return &Runner{driver: driver, pipeline: pipeline, scouts: scouts, notifier: notifier, logger: logger}
}

// RunAll executes every stored scout once and delivers the results.
func (r *Runner) RunAll(ctx context.Context) error {
	scouts, err := r.scouts.List(ctx)
	if err != nil {
		return err
	}

	for _, scout := range scouts {
		res := r.pipeline.Run(ctx, scout)

		if err := r.scouts.TouchLastRun(ctx, scout.ID, res.FinishedAt); err != nil {
			r.logger.Warn("record last run", "scout", scout.Name, "error", err)
		}

		if r.notifier == nil {
			continue
		}
		if err := r.notifier.PublishResult(ctx, res); err != nil {
			r.logger.Warn("deliver result", "scout", scout.Name, "error", err)
		}
	}
	return nil
}

// Start registers the recurring job with the provided scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if r.driver == nil || r.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := r.RunAll(ctx); err != nil {
			r.logger.Error("scheduled run", "trigger", trigger, "error", err)
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Runner) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Stop(ctx)
}
