package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// IntakeWatcher is the subset of *intake.Watcher used by the watch-intake command.
type IntakeWatcher interface {
	Scan(ctx context.Context) (int, error)
	Run(ctx context.Context) error
}

// RunWatchIntake ingests files from the intake directory. With once set it performs a single
// scan and reports how many transactions were created; otherwise it watches until SIGINT/SIGTERM.
func RunWatchIntake(
	ctx context.Context,
	watcher IntakeWatcher,
	logger *slog.Logger,
	writer io.Writer,
	dir string,
	once bool,
	format string,
) error {
	if watcher == nil {
		return fmt.Errorf("intake directory is not configured: set INTAKE_WATCH_DIR or pass --dir")
	}

	if once {
		created, err := watcher.Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan intake directory: %w", err)
		}

		if format == "json" {
			return writeJSON(writer, map[string]interface{}{
				"dir":     dir,
				"created": created,
			})
		}
		_, _ = fmt.Fprintf(writer, "Ingested %d file(s) from %s\n", created, dir)
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("intake watcher failed: %w", err)
	}

	logger.Info("intake watcher stopped")
	return nil
}
