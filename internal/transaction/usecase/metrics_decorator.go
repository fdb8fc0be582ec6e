package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/edibox/internal/errors"
	"github.com/allisson/edibox/internal/metrics"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

const metricsDomain = "edi"

// lifecycleUseCaseWithMetrics decorates LifecycleUseCase with metrics instrumentation.
type lifecycleUseCaseWithMetrics struct {
	next    LifecycleUseCase
	metrics metrics.BusinessMetrics
}

// NewLifecycleUseCaseWithMetrics wraps a LifecycleUseCase with metrics recording.
func NewLifecycleUseCaseWithMetrics(useCase LifecycleUseCase, m metrics.BusinessMetrics) LifecycleUseCase {
	return &lifecycleUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *lifecycleUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	l.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	l.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// arrived records the stage t landed in after a successful mutation.
func (l *lifecycleUseCaseWithMetrics) arrived(ctx context.Context, t *transactionDomain.Transaction, err error) {
	if err != nil || t == nil {
		return
	}
	l.metrics.RecordStageEntry(ctx, string(t.Stage))
}

// Create records metrics for transaction creation.
func (l *lifecycleUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Create(ctx, input)
	l.record(ctx, "transaction_create", start, err)
	l.arrived(ctx, t, err)
	if err == nil && t != nil {
		l.metrics.RecordContentSize(ctx, t.DocumentType, t.ContentSize)
	}
	return t, err
}

// Update records metrics for transaction updates.
func (l *lifecycleUseCaseWithMetrics) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Update(ctx, id, input)
	l.record(ctx, "transaction_update", start, err)
	return t, err
}

// Move records metrics for stage moves.
func (l *lifecycleUseCaseWithMetrics) Move(
	ctx context.Context,
	id uuid.UUID,
	target transactionDomain.Stage,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Move(ctx, id, target)
	l.record(ctx, "transaction_move", start, err)
	l.arrived(ctx, t, err)
	return t, err
}

// Accept records metrics for intake acceptance.
func (l *lifecycleUseCaseWithMetrics) Accept(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Accept(ctx, id)
	l.record(ctx, "transaction_accept", start, err)
	l.arrived(ctx, t, err)
	return t, err
}

// Send records metrics for transmissions.
func (l *lifecycleUseCaseWithMetrics) Send(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Send(ctx, id)
	l.record(ctx, "transaction_send", start, err)
	l.arrived(ctx, t, err)
	return t, err
}

// Delete records metrics for soft and permanent deletes.
func (l *lifecycleUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID, permanent bool) error {
	start := time.Now()
	err := l.next.Delete(ctx, id, permanent)
	operation := "transaction_delete"
	if permanent {
		operation = "transaction_delete_permanent"
	}
	l.record(ctx, operation, start, err)
	return err
}

// Restore records metrics for restores from discarded.
func (l *lifecycleUseCaseWithMetrics) Restore(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Restore(ctx, id)
	l.record(ctx, "transaction_restore", start, err)
	l.arrived(ctx, t, err)
	return t, err
}

// Acknowledge records metrics for partner acknowledgments.
func (l *lifecycleUseCaseWithMetrics) Acknowledge(
	ctx context.Context,
	id uuid.UUID,
	input AckInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Acknowledge(ctx, id, input)
	l.record(ctx, "transaction_acknowledge", start, err)
	return t, err
}

// Get records metrics for transaction retrieval.
func (l *lifecycleUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Get(ctx, id)
	l.record(ctx, "transaction_get", start, err)
	return t, err
}

// Content records metrics for content reads.
func (l *lifecycleUseCaseWithMetrics) Content(ctx context.Context, id uuid.UUID) (*ContentResult, error) {
	start := time.Now()
	result, err := l.next.Content(ctx, id)
	l.record(ctx, "transaction_content", start, err)
	return result, err
}

// VerifyIntegrity records metrics for integrity checks.
func (l *lifecycleUseCaseWithMetrics) VerifyIntegrity(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.next.VerifyIntegrity(ctx, id)
	l.record(ctx, "transaction_verify_integrity", start, err)
	return err
}

// History records metrics for history reads.
func (l *lifecycleUseCaseWithMetrics) History(
	ctx context.Context,
	id uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	start := time.Now()
	entries, err := l.next.History(ctx, id)
	l.record(ctx, "transaction_history", start, err)
	return entries, err
}

// ValidateForProcessing records metrics for processing validation.
func (l *lifecycleUseCaseWithMetrics) ValidateForProcessing(
	ctx context.Context,
	id uuid.UUID,
) ([]apperrors.Problem, error) {
	start := time.Now()
	problems, err := l.next.ValidateForProcessing(ctx, id)
	l.record(ctx, "transaction_validate", start, err)
	return problems, err
}

// AcknowledgmentErrors records metrics for acknowledgment checks.
func (l *lifecycleUseCaseWithMetrics) AcknowledgmentErrors(
	ctx context.Context,
	id uuid.UUID,
) ([]transactionDomain.AckProblem, error) {
	start := time.Now()
	problems, err := l.next.AcknowledgmentErrors(ctx, id)
	l.record(ctx, "transaction_ack_errors", start, err)
	return problems, err
}

// List records metrics for filtered listings.
func (l *lifecycleUseCaseWithMetrics) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.List(ctx, filter)
	l.record(ctx, "transaction_list", start, err)
	return page, err
}

// ListByStage records metrics for stage listings.
func (l *lifecycleUseCaseWithMetrics) ListByStage(
	ctx context.Context,
	stage transactionDomain.Stage,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByStage(ctx, stage, offset, limit)
	l.record(ctx, "transaction_list_by_stage", start, err)
	return page, err
}

// ListByPartner records metrics for partner listings.
func (l *lifecycleUseCaseWithMetrics) ListByPartner(
	ctx context.Context,
	partnerName string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByPartner(ctx, partnerName, offset, limit)
	l.record(ctx, "transaction_list_by_partner", start, err)
	return page, err
}

// ListByDocumentType records metrics for document type listings.
func (l *lifecycleUseCaseWithMetrics) ListByDocumentType(
	ctx context.Context,
	documentType string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByDocumentType(ctx, documentType, offset, limit)
	l.record(ctx, "transaction_list_by_document_type", start, err)
	return page, err
}

// Search records metrics for searches.
func (l *lifecycleUseCaseWithMetrics) Search(
	ctx context.Context,
	query string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.Search(ctx, query, offset, limit)
	l.record(ctx, "transaction_search", start, err)
	return page, err
}

// FolderStats records metrics for single stage summaries.
func (l *lifecycleUseCaseWithMetrics) FolderStats(
	ctx context.Context,
	stage transactionDomain.Stage,
) (*transactionDomain.FolderStats, error) {
	start := time.Now()
	stats, err := l.next.FolderStats(ctx, stage)
	l.record(ctx, "folder_stats", start, err)
	return stats, err
}

// AllFolderStats records metrics for the all-stage summary.
func (l *lifecycleUseCaseWithMetrics) AllFolderStats(ctx context.Context) ([]*transactionDomain.FolderStats, error) {
	start := time.Now()
	stats, err := l.next.AllFolderStats(ctx)
	l.record(ctx, "folder_stats_all", start, err)
	return stats, err
}

// Partners records metrics for partner summaries.
func (l *lifecycleUseCaseWithMetrics) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	start := time.Now()
	partners, err := l.next.Partners(ctx)
	l.record(ctx, "partners_list", start, err)
	return partners, err
}

// DocumentTypes records metrics for document type summaries.
func (l *lifecycleUseCaseWithMetrics) DocumentTypes(
	ctx context.Context,
) ([]*transactionDomain.DocumentTypeSummary, error) {
	start := time.Now()
	summaries, err := l.next.DocumentTypes(ctx)
	l.record(ctx, "document_types_list", start, err)
	return summaries, err
}

// PurgeDiscarded records metrics for discarded purges.
func (l *lifecycleUseCaseWithMetrics) PurgeDiscarded(ctx context.Context, olderThanDays int, dryRun bool) (int, error) {
	start := time.Now()
	count, err := l.next.PurgeDiscarded(ctx, olderThanDays, dryRun)
	l.record(ctx, "purge_discarded", start, err)
	return count, err
}

// RecoverStuck records metrics for stuck send recovery.
func (l *lifecycleUseCaseWithMetrics) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	start := time.Now()
	count, err := l.next.RecoverStuck(ctx, olderThan)
	l.record(ctx, "recover_stuck", start, err)
	return count, err
}

// CleanHistory records metrics for history retention runs.
func (l *lifecycleUseCaseWithMetrics) CleanHistory(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := l.next.CleanHistory(ctx, olderThanDays, dryRun)
	l.record(ctx, "history_clean", start, err)
	return count, err
}

// VerifyHistory records metrics for history signature sweeps.
func (l *lifecycleUseCaseWithMetrics) VerifyHistory(
	ctx context.Context,
	from, to *time.Time,
) (*HistoryVerification, error) {
	start := time.Now()
	result, err := l.next.VerifyHistory(ctx, from, to)
	l.record(ctx, "history_verify", start, err)
	return result, err
}
