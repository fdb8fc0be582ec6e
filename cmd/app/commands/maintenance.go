package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	transactionUseCase "github.com/allisson/edibox/internal/transaction/usecase"
)

// RunPurgeDiscarded permanently deletes transactions that have been in the discarded
// folder for more than days. Dry-run only counts them.
//
// Requirements: Database must be migrated and accessible.
func RunPurgeDiscarded(
	ctx context.Context,
	lifecycle transactionUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("purging discarded transactions",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := lifecycle.PurgeDiscarded(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to purge discarded transactions: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]interface{}{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would purge %d discarded transaction(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully purged %d discarded transaction(s) older than %d day(s)\n", count, days)
	}

	logger.Info("purge completed", slog.Int("count", count), slog.Bool("dry_run", dryRun))
	return nil
}

// RunRecoverStuck marks transactions that stayed in processing longer than olderThan as failed.
func RunRecoverStuck(
	ctx context.Context,
	lifecycle transactionUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	olderThan time.Duration,
	format string,
) error {
	if olderThan <= 0 {
		return fmt.Errorf("older-than must be a positive duration, got: %s", olderThan)
	}

	logger.Info("recovering stuck transactions", slog.Duration("older_than", olderThan))

	count, err := lifecycle.RecoverStuck(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to recover stuck transactions: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]interface{}{
			"count":      count,
			"older_than": olderThan.String(),
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Marked %d stuck transaction(s) as failed\n", count)
	}

	logger.Info("recovery completed", slog.Int("count", count))
	return nil
}

// RunCleanHistory deletes history entries older than the specified number of days.
// Supports dry-run mode to preview deletion count and both text/JSON output formats.
func RunCleanHistory(
	ctx context.Context,
	lifecycle transactionUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning transaction history",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := lifecycle.CleanHistory(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to delete history entries: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]interface{}{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d history entr(ies) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d history entr(ies) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}

// RunVerifyHistory checks the signature of every history entry in the optional date range.
// Returns an error when any entry fails verification.
//
// Requirements: HISTORY_SIGNING_KEY_URI and HISTORY_SIGNING_KEY must be configured.
func RunVerifyHistory(
	ctx context.Context,
	lifecycle transactionUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	startDate, endDate string,
	format string,
) error {
	var from, to *time.Time
	if startDate != "" {
		start, err := parseDate(startDate)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		from = &start
	}
	if endDate != "" {
		end, err := parseDate(endDate)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		to = &end
	}
	if from != nil && to != nil && !to.After(*from) {
		return fmt.Errorf("end date must be after start date")
	}

	logger.Info("verifying transaction history",
		slog.String("start_date", startDate),
		slog.String("end_date", endDate),
	)

	report, err := lifecycle.VerifyHistory(ctx, from, to)
	if errors.Is(err, transactionDomain.ErrSigningDisabled) {
		return fmt.Errorf("history signing is not configured: set HISTORY_SIGNING_KEY_URI and HISTORY_SIGNING_KEY")
	}
	if err != nil {
		return fmt.Errorf("failed to verify history: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]interface{}{
			"checked":        report.Checked,
			"unsigned_count": report.Unsigned,
			"invalid_count":  len(report.Invalid),
			"invalid":        report.Invalid,
			"passed":         len(report.Invalid) == 0,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Int("checked", report.Checked),
		slog.Int("unsigned", report.Unsigned),
		slog.Int("invalid", len(report.Invalid)),
	)

	if len(report.Invalid) > 0 {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", len(report.Invalid))
	}
	return nil
}

func outputVerifyText(writer io.Writer, report *transactionUseCase.HistoryVerification) {
	_, _ = fmt.Fprintf(writer, "History Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "==============================\n\n")
	_, _ = fmt.Fprintf(writer, "Checked:   %d\n", report.Checked)
	_, _ = fmt.Fprintf(writer, "Unsigned:  %d\n", report.Unsigned)
	_, _ = fmt.Fprintf(writer, "Invalid:   %d\n\n", len(report.Invalid))

	switch {
	case len(report.Invalid) > 0:
		_, _ = fmt.Fprintf(writer, "WARNING: %d entr(ies) failed integrity check!\n\n", len(report.Invalid))
		_, _ = fmt.Fprintf(writer, "Invalid Entry IDs:\n")
		for _, id := range report.Invalid {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.Checked == 0:
		_, _ = fmt.Fprintf(writer, "Status: No history entries found in specified time range\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}
