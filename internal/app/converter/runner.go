// Package converter runs the scheduled conversion passes: submit accepted jobs,
// reconcile running ones and purge old queue messages.
package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"video-conversion/internal/app/conversion"
)

// PassEngine is the part of the conversion engine a scheduled pass drives.
type PassEngine interface {
	SubmitPending(ctx context.Context) (conversion.SubmitStats, error)
	Reconcile(ctx context.Context) (conversion.ReconcileStats, error)
	PurgeMessages(ctx context.Context, retention time.Duration) (int64, error)
}

// PassReport summarizes one scheduled pass.
type PassReport struct {
	ID        string
	Submit    conversion.SubmitStats
	Reconcile conversion.ReconcileStats
	Purged    int64
	Duration  time.Duration
}

type Runner struct {
	engine    PassEngine
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewRunner creates a runner. A retention of zero disables message purging.
func NewRunner(engine PassEngine, interval, retention time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		engine:    engine,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// RunOnce submits, then reconciles, then purges. A failing step does not stop the
// ones after it; their errors are joined.
func (r *Runner) RunOnce(ctx context.Context) (PassReport, error) {
	report := PassReport{ID: uuid.NewString()}
	logger := r.logger.With(zap.String("pass_id", report.ID))
	start := time.Now()

	var (
		errs []error
		err  error
	)
	if report.Submit, err = r.engine.SubmitPending(ctx); err != nil {
		errs = append(errs, fmt.Errorf("submit: %w", err))
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	if report.Reconcile, err = r.engine.Reconcile(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reconcile: %w", err))
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	if r.retention > 0 {
		if report.Purged, err = r.engine.PurgeMessages(ctx, r.retention); err != nil {
			errs = append(errs, fmt.Errorf("purge messages: %w", err))
		}
	}
	report.Duration = time.Since(start)

	logger.Info("pass complete",
		zap.Int("submitted", report.Submit.Submitted),
		zap.Int("reconciled", report.Reconcile.Candidates),
		zap.Int("completed", report.Reconcile.Completed),
		zap.Int("timed_out", report.Reconcile.TimedOut),
		zap.Int64("purged", report.Purged),
		zap.Duration("duration", report.Duration))
	return report, errors.Join(errs...)
}

// Run repeats RunOnce every interval until ctx is cancelled. The first pass starts
// immediately; a failed pass is logged and the loop carries on.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scheduler started", zap.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if report, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("pass failed", zap.String("pass_id", report.ID), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
