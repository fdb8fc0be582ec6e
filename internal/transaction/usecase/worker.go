package usecase

import (
	"context"
	"log/slog"
	"time"
)

// WorkerConfig holds maintenance worker configuration.
type WorkerConfig struct {
	Interval time.Duration
	// StuckAfter is how long a transaction may stay in processing before it is marked failed.
	StuckAfter time.Duration
	// PurgeAfterDays enables purging of discarded transactions when greater than zero.
	PurgeAfterDays int
}

// MaintenanceWorker periodically recovers stuck sends and purges old discarded transactions.
type MaintenanceWorker struct {
	config    WorkerConfig
	lifecycle LifecycleUseCase
	logger    *slog.Logger
}

// NewMaintenanceWorker creates a new MaintenanceWorker.
func NewMaintenanceWorker(config WorkerConfig, lifecycle LifecycleUseCase, logger *slog.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		config:    config,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Start runs one maintenance pass immediately and then on every interval until ctx is done.
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	if w.logger != nil {
		w.logger.Info("starting maintenance worker",
			slog.Duration("interval", w.config.Interval),
			slog.Duration("stuck_after", w.config.StuckAfter),
			slog.Int("purge_after_days", w.config.PurgeAfterDays),
		)
	}

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if w.logger != nil {
				w.logger.Info("stopping maintenance worker")
			}
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single maintenance pass. Errors are logged, not returned.
func (w *MaintenanceWorker) RunOnce(ctx context.Context) {
	if _, err := w.lifecycle.RecoverStuck(ctx, w.config.StuckAfter); err != nil && w.logger != nil {
		w.logger.Error("failed to recover stuck transactions", slog.Any("error", err))
	}

	if w.config.PurgeAfterDays <= 0 {
		return
	}
	if _, err := w.lifecycle.PurgeDiscarded(ctx, w.config.PurgeAfterDays, false); err != nil && w.logger != nil {
		w.logger.Error("failed to purge discarded transactions", slog.Any("error", err))
	}
}
