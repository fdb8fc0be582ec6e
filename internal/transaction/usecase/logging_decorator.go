package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// lifecycleUseCaseWithLogging decorates LifecycleUseCase with structured logging.
// Mutations are logged at info level, reads at debug level, and failures at warn or error
// level depending on whether the error is a caller mistake.
type lifecycleUseCaseWithLogging struct {
	next   LifecycleUseCase
	logger *slog.Logger
}

// NewLifecycleUseCaseWithLogging wraps a LifecycleUseCase with operation logging.
func NewLifecycleUseCaseWithLogging(useCase LifecycleUseCase, logger *slog.Logger) LifecycleUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &lifecycleUseCaseWithLogging{
		next:   useCase,
		logger: logger,
	}
}

func (l *lifecycleUseCaseWithLogging) log(
	ctx context.Context,
	level slog.Level,
	operation string,
	id uuid.UUID,
	start time.Time,
	err error,
	attrs ...slog.Attr,
) {
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.Duration("duration", time.Since(start)),
	)
	if id != uuid.Nil {
		attrs = append(attrs, slog.String("transaction_id", id.String()))
	}
	if actor := transactionDomain.ActorFrom(ctx); actor != "" {
		attrs = append(attrs, slog.String("actor", actor))
	}

	msg := "lifecycle operation completed"
	if err != nil {
		attrs = append(attrs, slog.Any("error", err), slog.String("kind", apperrors.Kind(err)))
		msg = "lifecycle operation failed"
		level = slog.LevelWarn
		if apperrors.Kind(err) == apperrors.KindInternal {
			level = slog.LevelError
		}
	}

	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

func idOf(t *transactionDomain.Transaction) uuid.UUID {
	if t == nil {
		return uuid.Nil
	}
	return t.ID
}

func (l *lifecycleUseCaseWithLogging) Create(
	ctx context.Context,
	input CreateInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Create(ctx, input)
	l.log(ctx, slog.LevelInfo, "create", idOf(t), start, err,
		slog.String("stage", string(input.Stage)),
		slog.String("document_type", input.DocumentType),
	)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Update(ctx, id, input)
	l.log(ctx, slog.LevelInfo, "update", id, start, err)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Move(
	ctx context.Context,
	id uuid.UUID,
	target transactionDomain.Stage,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Move(ctx, id, target)
	l.log(ctx, slog.LevelInfo, "move", id, start, err, slog.String("target", string(target)))
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Accept(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Accept(ctx, id)
	l.log(ctx, slog.LevelInfo, "accept", id, start, err)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Send(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Send(ctx, id)
	l.log(ctx, slog.LevelInfo, "send", id, start, err)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Delete(ctx context.Context, id uuid.UUID, permanent bool) error {
	start := time.Now()
	err := l.next.Delete(ctx, id, permanent)
	l.log(ctx, slog.LevelInfo, "delete", id, start, err, slog.Bool("permanent", permanent))
	return err
}

func (l *lifecycleUseCaseWithLogging) Restore(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Restore(ctx, id)
	l.log(ctx, slog.LevelInfo, "restore", id, start, err)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Acknowledge(
	ctx context.Context,
	id uuid.UUID,
	input AckInput,
) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Acknowledge(ctx, id, input)
	l.log(ctx, slog.LevelInfo, "acknowledge", id, start, err, slog.String("ack_status", string(input.Status)))
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Get(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	start := time.Now()
	t, err := l.next.Get(ctx, id)
	l.log(ctx, slog.LevelDebug, "get", id, start, err)
	return t, err
}

func (l *lifecycleUseCaseWithLogging) Content(ctx context.Context, id uuid.UUID) (*ContentResult, error) {
	start := time.Now()
	result, err := l.next.Content(ctx, id)
	l.log(ctx, slog.LevelDebug, "content", id, start, err)
	return result, err
}

func (l *lifecycleUseCaseWithLogging) VerifyIntegrity(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.next.VerifyIntegrity(ctx, id)
	l.log(ctx, slog.LevelDebug, "verify_integrity", id, start, err)
	return err
}

func (l *lifecycleUseCaseWithLogging) History(
	ctx context.Context,
	id uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	start := time.Now()
	entries, err := l.next.History(ctx, id)
	l.log(ctx, slog.LevelDebug, "history", id, start, err)
	return entries, err
}

func (l *lifecycleUseCaseWithLogging) ValidateForProcessing(
	ctx context.Context,
	id uuid.UUID,
) ([]apperrors.Problem, error) {
	start := time.Now()
	problems, err := l.next.ValidateForProcessing(ctx, id)
	l.log(ctx, slog.LevelDebug, "validate", id, start, err, slog.Int("problems", len(problems)))
	return problems, err
}

func (l *lifecycleUseCaseWithLogging) AcknowledgmentErrors(
	ctx context.Context,
	id uuid.UUID,
) ([]transactionDomain.AckProblem, error) {
	start := time.Now()
	problems, err := l.next.AcknowledgmentErrors(ctx, id)
	l.log(ctx, slog.LevelDebug, "acknowledgment_errors", id, start, err)
	return problems, err
}

func (l *lifecycleUseCaseWithLogging) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.List(ctx, filter)
	l.log(ctx, slog.LevelDebug, "list", uuid.Nil, start, err)
	return page, err
}

func (l *lifecycleUseCaseWithLogging) ListByStage(
	ctx context.Context,
	stage transactionDomain.Stage,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByStage(ctx, stage, offset, limit)
	l.log(ctx, slog.LevelDebug, "list_by_stage", uuid.Nil, start, err, slog.String("stage", string(stage)))
	return page, err
}

func (l *lifecycleUseCaseWithLogging) ListByPartner(
	ctx context.Context,
	partnerName string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByPartner(ctx, partnerName, offset, limit)
	l.log(ctx, slog.LevelDebug, "list_by_partner", uuid.Nil, start, err)
	return page, err
}

func (l *lifecycleUseCaseWithLogging) ListByDocumentType(
	ctx context.Context,
	documentType string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.ListByDocumentType(ctx, documentType, offset, limit)
	l.log(ctx, slog.LevelDebug, "list_by_document_type", uuid.Nil, start, err)
	return page, err
}

func (l *lifecycleUseCaseWithLogging) Search(
	ctx context.Context,
	query string,
	offset, limit int,
) (*TransactionPage, error) {
	start := time.Now()
	page, err := l.next.Search(ctx, query, offset, limit)
	l.log(ctx, slog.LevelDebug, "search", uuid.Nil, start, err)
	return page, err
}

func (l *lifecycleUseCaseWithLogging) FolderStats(
	ctx context.Context,
	stage transactionDomain.Stage,
) (*transactionDomain.FolderStats, error) {
	start := time.Now()
	stats, err := l.next.FolderStats(ctx, stage)
	l.log(ctx, slog.LevelDebug, "folder_stats", uuid.Nil, start, err, slog.String("stage", string(stage)))
	return stats, err
}

func (l *lifecycleUseCaseWithLogging) AllFolderStats(ctx context.Context) ([]*transactionDomain.FolderStats, error) {
	start := time.Now()
	stats, err := l.next.AllFolderStats(ctx)
	l.log(ctx, slog.LevelDebug, "folder_stats_all", uuid.Nil, start, err)
	return stats, err
}

func (l *lifecycleUseCaseWithLogging) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	start := time.Now()
	partners, err := l.next.Partners(ctx)
	l.log(ctx, slog.LevelDebug, "partners", uuid.Nil, start, err)
	return partners, err
}

func (l *lifecycleUseCaseWithLogging) DocumentTypes(
	ctx context.Context,
) ([]*transactionDomain.DocumentTypeSummary, error) {
	start := time.Now()
	summaries, err := l.next.DocumentTypes(ctx)
	l.log(ctx, slog.LevelDebug, "document_types", uuid.Nil, start, err)
	return summaries, err
}

func (l *lifecycleUseCaseWithLogging) PurgeDiscarded(ctx context.Context, olderThanDays int, dryRun bool) (int, error) {
	start := time.Now()
	count, err := l.next.PurgeDiscarded(ctx, olderThanDays, dryRun)
	l.log(ctx, slog.LevelInfo, "purge_discarded", uuid.Nil, start, err,
		slog.Int("days", olderThanDays),
		slog.Bool("dry_run", dryRun),
		slog.Int("count", count),
	)
	return count, err
}

func (l *lifecycleUseCaseWithLogging) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	start := time.Now()
	count, err := l.next.RecoverStuck(ctx, olderThan)
	level := slog.LevelDebug
	if count > 0 {
		level = slog.LevelInfo
	}
	l.log(ctx, level, "recover_stuck", uuid.Nil, start, err, slog.Int("count", count))
	return count, err
}

func (l *lifecycleUseCaseWithLogging) CleanHistory(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := l.next.CleanHistory(ctx, olderThanDays, dryRun)
	l.log(ctx, slog.LevelInfo, "clean_history", uuid.Nil, start, err,
		slog.Int("days", olderThanDays),
		slog.Bool("dry_run", dryRun),
		slog.Int64("count", count),
	)
	return count, err
}

func (l *lifecycleUseCaseWithLogging) VerifyHistory(
	ctx context.Context,
	from, to *time.Time,
) (*HistoryVerification, error) {
	start := time.Now()
	result, err := l.next.VerifyHistory(ctx, from, to)
	l.log(ctx, slog.LevelInfo, "verify_history", uuid.Nil, start, err)
	return result, err
}
