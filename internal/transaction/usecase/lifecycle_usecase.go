package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/edibox/internal/content"
	"github.com/allisson/edibox/internal/database"
	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	"github.com/allisson/edibox/internal/lock"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

const (
	// DefaultPageLimit is used when a listing does not specify a limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps the page size of every listing.
	MaxPageLimit = 100

	maintenanceBatchSize = 10000
	historyPageSize      = 500
	backupSuffix         = ".bak"
)

// lifecycleUseCase implements LifecycleUseCase.
type lifecycleUseCase struct {
	txManager       database.TxManager
	transactionRepo TransactionRepository
	historyRepo     HistoryRepository
	store           ContentStore
	locker          lock.Locker
	transmitter     Transmitter
	signer          HistorySigner
	generator       *edi.Generator
	sendTimeout     time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewLifecycleUseCase creates the lifecycle engine. signer may be nil to disable history signing.
func NewLifecycleUseCase(
	txManager database.TxManager,
	transactionRepo TransactionRepository,
	historyRepo HistoryRepository,
	store ContentStore,
	locker lock.Locker,
	transmitter Transmitter,
	signer HistorySigner,
	sendTimeout time.Duration,
	logger *slog.Logger,
) LifecycleUseCase {
	return newLifecycleUseCase(
		txManager, transactionRepo, historyRepo, store, locker, transmitter, signer, sendTimeout, logger,
	)
}

func newLifecycleUseCase(
	txManager database.TxManager,
	transactionRepo TransactionRepository,
	historyRepo HistoryRepository,
	store ContentStore,
	locker lock.Locker,
	transmitter Transmitter,
	signer HistorySigner,
	sendTimeout time.Duration,
	logger *slog.Logger,
) *lifecycleUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &lifecycleUseCase{
		txManager:       txManager,
		transactionRepo: transactionRepo,
		historyRepo:     historyRepo,
		store:           store,
		locker:          locker,
		transmitter:     transmitter,
		signer:          signer,
		generator:       edi.NewGenerator(),
		sendTimeout:     sendTimeout,
		logger:          logger,
		now:             time.Now,
	}
}

// Create stores content (supplied or generated from metadata) and the new record in intake or outbox.
func (l *lifecycleUseCase) Create(ctx context.Context, input CreateInput) (*transactionDomain.Transaction, error) {
	if input.Stage != transactionDomain.StageIntake && input.Stage != transactionDomain.StageOutbox {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidCreateStage, "stage %q", input.Stage)
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	data, format, err := l.resolveContent(input.Content, input.Metadata)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	t := &transactionDomain.Transaction{
		ID:             uuid.Must(uuid.NewV7()),
		Filename:       strings.TrimSpace(input.Filename),
		Stage:          input.Stage,
		PartnerName:    strings.TrimSpace(input.PartnerName),
		PartnerID:      strings.TrimSpace(input.PartnerID),
		DocumentType:   strings.TrimSpace(input.DocumentType),
		DocumentNumber: strings.TrimSpace(input.DocumentNumber),
		Status:         transactionDomain.StatusDraft,
		Metadata:       input.Metadata.Clone(),
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if t.Filename == "" {
		t.Filename = transactionDomain.DefaultFilename(t.DocumentType, now)
	}

	err = l.withLock(ctx, t.ID, func() error {
		info, err := l.store.Save(ctx, string(t.Stage), t.ContentName(format), data)
		if err != nil {
			return err
		}
		t.ContentPath, t.ContentSize, t.ContentHash = info.Path, info.Size, info.Hash

		entry := l.newEntry(ctx, t, transactionDomain.ActionCreated, "", t.Stage, map[string]any{
			"initial": map[string]any{
				"filename":          t.Filename,
				"stage":             string(t.Stage),
				"partner_name":      t.PartnerName,
				"partner_id":        t.PartnerID,
				"document_type":     t.DocumentType,
				"document_number":   t.DocumentNumber,
				"format":            string(format),
				"content_generated": input.Content == nil,
			},
		})
		return l.commit(ctx, t, entry, info.Path)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func validateCreateInput(input CreateInput) error {
	problems := make([]apperrors.Problem, 0)
	if strings.TrimSpace(input.PartnerName) == "" {
		problems = append(problems, apperrors.Problem{Field: "partner_name", Message: "partner name is required"})
	}
	if strings.TrimSpace(input.DocumentType) == "" {
		problems = append(problems, apperrors.Problem{Field: "document_type", Message: "document type is required"})
	}
	if input.Stage == transactionDomain.StageOutbox && input.Metadata == nil {
		problems = append(problems, apperrors.Problem{
			Field:   "metadata",
			Message: "metadata is required for outbox transactions",
		})
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError(problems...)
	}
	return nil
}

// resolveContent returns the supplied content with its detected format, or renders md
// in its own dialect (X12 when unset) when no content was supplied.
func (l *lifecycleUseCase) resolveContent(data []byte, md *edi.Metadata) ([]byte, edi.Format, error) {
	if data != nil {
		return data, edi.Detect(data), nil
	}

	format := edi.FormatX12
	if md != nil && md.Format.IsEDI() {
		format = md.Format
	}
	generated, err := l.generator.Generate(md, format)
	if err != nil {
		return nil, "", err
	}
	return generated, format, nil
}

// Update edits an intake or outbox transaction. Outbox content is regenerated when only
// metadata changes.
func (l *lifecycleUseCase) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateInput,
) (*transactionDomain.Transaction, error) {
	if input.Status != nil && !input.Status.Editable() {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidStatus, "%q cannot be set directly", *input.Status)
	}

	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage != transactionDomain.StageIntake && t.Stage != transactionDomain.StageOutbox {
			return transactionDomain.ErrNotEditable
		}

		oldValues := make(map[string]any)
		newValues := make(map[string]any)
		change := func(field string, current *string, next *string) {
			if next == nil {
				return
			}
			value := strings.TrimSpace(*next)
			if value == *current {
				return
			}
			oldValues[field] = *current
			newValues[field] = value
			*current = value
		}

		change("filename", &t.Filename, input.Filename)
		change("partner_name", &t.PartnerName, input.PartnerName)
		change("partner_id", &t.PartnerID, input.PartnerID)
		change("document_type", &t.DocumentType, input.DocumentType)
		change("document_number", &t.DocumentNumber, input.DocumentNumber)
		if input.Status != nil && *input.Status != t.Status {
			oldValues["status"] = string(t.Status)
			newValues["status"] = string(*input.Status)
			t.Status = *input.Status
		}
		if input.Metadata != nil {
			oldValues["metadata"] = t.Metadata
			newValues["metadata"] = input.Metadata.Clone()
			t.Metadata = input.Metadata.Clone()
		}

		if err := requiredFieldProblems(t); err != nil {
			return err
		}

		data := input.Content
		if data == nil && input.Metadata != nil && t.Stage == transactionDomain.StageOutbox {
			generated, _, err := l.resolveContent(nil, t.Metadata)
			if err != nil {
				return err
			}
			data = generated
		}

		if data == nil && len(newValues) == 0 {
			return nil
		}

		t.ModifiedAt = l.now().UTC()
		if data == nil {
			entry := l.newEntry(ctx, t, transactionDomain.ActionEdited, t.Stage, t.Stage, map[string]any{
				"old": oldValues,
				"new": newValues,
			})
			return l.commit(ctx, t, entry, "")
		}

		return l.replaceContent(ctx, t, data, oldValues, newValues)
	})
}

func requiredFieldProblems(t *transactionDomain.Transaction) error {
	problems := make([]apperrors.Problem, 0)
	if strings.TrimSpace(t.PartnerName) == "" {
		problems = append(problems, apperrors.Problem{Field: "partner_name", Message: "partner name is required"})
	}
	if strings.TrimSpace(t.DocumentType) == "" {
		problems = append(problems, apperrors.Problem{Field: "document_type", Message: "document type is required"})
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError(problems...)
	}
	return nil
}

// replaceContent swaps the content of t following the write-ahead order. When the
// detected format keeps the same key the previous content is first copied to a backup
// key and restored if the record update fails.
func (l *lifecycleUseCase) replaceContent(
	ctx context.Context,
	t *transactionDomain.Transaction,
	data []byte,
	oldValues, newValues map[string]any,
) error {
	format := edi.Detect(data)
	name := t.ContentName(format)
	oldPath := t.ContentPath
	target := content.Key(string(t.Stage), name)

	oldValues["content_hash"] = t.ContentHash
	details := map[string]any{"old": oldValues, "new": newValues}

	if target != oldPath {
		info, err := l.store.Save(ctx, string(t.Stage), name, data)
		if err != nil {
			return err
		}
		t.ContentPath, t.ContentSize, t.ContentHash = info.Path, info.Size, info.Hash
		newValues["content_hash"] = info.Hash

		entry := l.newEntry(ctx, t, transactionDomain.ActionEdited, t.Stage, t.Stage, details)
		if err := l.commit(ctx, t, entry, info.Path); err != nil {
			return err
		}
		l.removeContent(ctx, oldPath)
		return nil
	}

	backup := oldPath + backupSuffix
	_ = l.store.Delete(ctx, backup)
	if err := l.store.CopyTo(ctx, oldPath, backup); err != nil {
		return err
	}

	info, err := l.store.Write(ctx, oldPath, data)
	if err != nil {
		if restoreErr := l.restoreBackup(ctx, backup, oldPath); restoreErr != nil {
			return apperrors.Join(err, restoreErr)
		}
		return err
	}
	t.ContentSize, t.ContentHash = info.Size, info.Hash
	newValues["content_hash"] = info.Hash

	entry := l.newEntry(ctx, t, transactionDomain.ActionEdited, t.Stage, t.Stage, details)
	if err := l.commit(ctx, t, entry, ""); err != nil {
		if restoreErr := l.restoreBackup(ctx, backup, oldPath); restoreErr != nil {
			return apperrors.Join(err, restoreErr)
		}
		return err
	}

	l.removeContent(ctx, backup)
	return nil
}

func (l *lifecycleUseCase) restoreBackup(ctx context.Context, backup, target string) error {
	ctx = context.WithoutCancel(ctx)

	data, err := l.store.Read(ctx, backup)
	if err != nil {
		return apperrors.Wrap(err, "failed to read content backup")
	}
	if _, err := l.store.Write(ctx, target, data); err != nil {
		return apperrors.Wrap(err, "failed to restore content backup")
	}
	l.removeContent(ctx, backup)
	return nil
}

// Move relocates a transaction to target. Discarded transactions must be restored instead.
// A manual move into sent must satisfy the outgoing requirements and marks the status sent.
func (l *lifecycleUseCase) Move(
	ctx context.Context,
	id uuid.UUID,
	target transactionDomain.Stage,
) (*transactionDomain.Transaction, error) {
	if !target.Valid() {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidTargetStage, "%q", target)
	}

	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage == transactionDomain.StageDiscarded {
			return transactionDomain.ErrMoveFromDiscarded
		}
		if t.Stage == target {
			return transactionDomain.ErrSameStage
		}
		if target == transactionDomain.StageSent {
			if err := l.checkOutgoing(ctx, t); err != nil {
				return err
			}
			t.Status = transactionDomain.StatusSent
		}
		return l.relocate(ctx, t, target, l.now().UTC(), transactionDomain.ActionMoved, map[string]any{
			"reason": "manual_move",
		})
	})
}

// checkOutgoing runs the sent stage requirements against t as if it already sat in sent.
func (l *lifecycleUseCase) checkOutgoing(ctx context.Context, t *transactionDomain.Transaction) error {
	candidate := t.Clone()
	candidate.Stage = transactionDomain.StageSent

	problems, err := l.processingProblems(ctx, candidate)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError(problems...)
	}
	return nil
}

// Accept moves a valid intake transaction to accepted.
func (l *lifecycleUseCase) Accept(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage != transactionDomain.StageIntake {
			return transactionDomain.ErrNotInIntake
		}

		problems, err := l.processingProblems(ctx, t)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return apperrors.NewValidationError(problems...)
		}

		return l.relocate(ctx, t, transactionDomain.StageAccepted, l.now().UTC(), transactionDomain.ActionMoved,
			map[string]any{"reason": "accepted"})
	})
}

func sendable(status transactionDomain.Status) bool {
	switch status {
	case transactionDomain.StatusDraft, transactionDomain.StatusReady, transactionDomain.StatusFailed:
		return true
	}
	return false
}

// Send transmits an outbox transaction and moves it to sent. On failure the transaction
// stays in outbox with status failed.
func (l *lifecycleUseCase) Send(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage != transactionDomain.StageOutbox || !sendable(t.Status) {
			return transactionDomain.ErrNotSendable
		}

		problems, err := l.processingProblems(ctx, t)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return apperrors.NewValidationError(problems...)
		}

		data, err := l.store.Read(ctx, t.ContentPath)
		if err != nil {
			return err
		}
		if content.HashBytes(data) != t.ContentHash {
			return apperrors.Wrapf(transactionDomain.ErrContentMismatch, "transaction %s", t.ID)
		}

		snapshot := t.Clone()
		t.Status = transactionDomain.StatusProcessing
		t.ModifiedAt = l.now().UTC()
		if err := l.transactionRepo.Save(ctx, t); err != nil {
			return err
		}

		sendCtx, cancel := context.WithTimeout(ctx, l.sendTimeout)
		receipt, sendErr := l.transmitter.Transmit(sendCtx, t.Clone(), data)
		cancel()
		if sendErr != nil {
			return l.markSendFailed(ctx, snapshot, sendErr)
		}

		sentAt := l.now().UTC()
		t.Status = transactionDomain.StatusSent
		err = l.relocate(ctx, t, transactionDomain.StageSent, sentAt, transactionDomain.ActionSent, map[string]any{
			"sent_at": sentAt.Format(time.RFC3339Nano),
			"receipt": receipt,
		})
		if err != nil {
			return l.markSendFailed(ctx, snapshot, err)
		}
		return nil
	})
}

// markSendFailed records a failed send attempt on the pre-send snapshot so the
// transaction never remains in processing. It returns the transmission error.
func (l *lifecycleUseCase) markSendFailed(
	ctx context.Context,
	snapshot *transactionDomain.Transaction,
	cause error,
) error {
	ctx = context.WithoutCancel(ctx)
	sendErr := fmt.Errorf("%w: %v", transactionDomain.ErrSendFailed, cause)

	t := snapshot.Clone()
	t.Status = transactionDomain.StatusFailed
	t.ModifiedAt = l.now().UTC()

	entry := l.newEntry(ctx, t, transactionDomain.ActionSent, t.Stage, t.Stage, map[string]any{
		"error":  cause.Error(),
		"status": string(transactionDomain.StatusFailed),
	})
	if err := l.commit(ctx, t, entry, ""); err != nil {
		return apperrors.Join(sendErr, err)
	}
	return sendErr
}

// Delete soft-deletes into discarded, or removes record and content when permanent.
func (l *lifecycleUseCase) Delete(ctx context.Context, id uuid.UUID, permanent bool) error {
	_, err := l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if permanent {
			return l.permanentDelete(ctx, t)
		}
		if t.Stage == transactionDomain.StageDiscarded {
			return transactionDomain.ErrAlreadyDiscarded
		}
		return l.relocate(ctx, t, transactionDomain.StageDiscarded, l.now().UTC(), transactionDomain.ActionDeleted,
			map[string]any{"reason": "deleted"})
	})
	return err
}

// permanentDelete records the deletion, removes the record and then its content. History is kept.
func (l *lifecycleUseCase) permanentDelete(ctx context.Context, t *transactionDomain.Transaction) error {
	entry := l.newEntry(ctx, t, transactionDomain.ActionPermanentlyDeleted, t.Stage, "", map[string]any{
		"filename":     t.Filename,
		"content_path": t.ContentPath,
	})

	err := l.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := l.appendHistory(txCtx, entry); err != nil {
			return err
		}
		return l.transactionRepo.Delete(txCtx, t.ID)
	})
	if err != nil {
		return err
	}

	l.removeContent(ctx, t.ContentPath)
	return nil
}

// Restore returns a discarded transaction to the stage it was deleted from.
func (l *lifecycleUseCase) Restore(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage != transactionDomain.StageDiscarded {
			return transactionDomain.ErrNotDiscarded
		}

		target, err := l.restoreTarget(ctx, t.ID)
		if err != nil {
			return err
		}

		t.DiscardedAt = nil
		return l.relocate(ctx, t, target, l.now().UTC(), transactionDomain.ActionRestored, map[string]any{
			"restored_to": string(target),
		})
	})
}

// restoreTarget finds the stage recorded by the most recent move into discarded.
func (l *lifecycleUseCase) restoreTarget(ctx context.Context, id uuid.UUID) (transactionDomain.Stage, error) {
	entries, err := l.historyRepo.ListByTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.ToStage != transactionDomain.StageDiscarded {
			continue
		}
		if e.FromStage.Valid() && e.FromStage != transactionDomain.StageDiscarded {
			return e.FromStage, nil
		}
		break
	}
	return transactionDomain.StageIntake, nil
}

// Acknowledge records the trading partner verdict on a sent transaction.
func (l *lifecycleUseCase) Acknowledge(
	ctx context.Context,
	id uuid.UUID,
	input AckInput,
) (*transactionDomain.Transaction, error) {
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError(apperrors.Problem{
			Field:   "status",
			Message: "acknowledgment status must be accepted or rejected",
		})
	}

	return l.mutate(ctx, id, func(t *transactionDomain.Transaction) error {
		if t.Stage != transactionDomain.StageSent {
			return transactionDomain.ErrNotSent
		}

		now := l.now().UTC()
		t.AcknowledgmentStatus = input.Status
		t.AcknowledgmentMessage = strings.TrimSpace(input.Message)
		t.AcknowledgedAt = &now
		t.ModifiedAt = now
		t.Status = transactionDomain.StatusAcknowledged
		if input.Status == transactionDomain.AckRejected {
			t.Status = transactionDomain.StatusFailed
		}

		entry := l.newEntry(ctx, t, transactionDomain.ActionAcknowledged, t.Stage, t.Stage, map[string]any{
			"acknowledgment_status":  string(t.AcknowledgmentStatus),
			"acknowledgment_message": t.AcknowledgmentMessage,
			"acknowledged_at":        now.Format(time.RFC3339Nano),
		})
		return l.commit(ctx, t, entry, "")
	})
}

// Get returns the transaction record.
func (l *lifecycleUseCase) Get(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return l.transactionRepo.FindByID(ctx, id)
}

// Content returns the raw content after checking it against the recorded hash.
func (l *lifecycleUseCase) Content(ctx context.Context, id uuid.UUID) (*ContentResult, error) {
	t, err := l.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := l.store.Read(ctx, t.ContentPath)
	if err != nil {
		return nil, err
	}

	hash := content.HashBytes(data)
	if hash != t.ContentHash {
		return nil, apperrors.Wrapf(transactionDomain.ErrContentMismatch, "transaction %s", t.ID)
	}

	return &ContentResult{
		Content:  data,
		Size:     int64(len(data)),
		Hash:     hash,
		Format:   edi.Detect(data),
		Filename: t.Filename,
	}, nil
}

// VerifyIntegrity recomputes the content hash and compares it with the record.
func (l *lifecycleUseCase) VerifyIntegrity(ctx context.Context, id uuid.UUID) error {
	t, err := l.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := l.store.Hash(ctx, t.ContentPath)
	if err != nil {
		return err
	}
	if hash != t.ContentHash {
		return apperrors.Wrapf(transactionDomain.ErrContentMismatch, "transaction %s", t.ID)
	}
	return nil
}

// History returns the history of a transaction, including permanently deleted ones.
func (l *lifecycleUseCase) History(ctx context.Context, id uuid.UUID) ([]*transactionDomain.HistoryEntry, error) {
	entries, err := l.historyRepo.ListByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := l.transactionRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// ValidateForProcessing lists what keeps the transaction from being processed.
func (l *lifecycleUseCase) ValidateForProcessing(ctx context.Context, id uuid.UUID) ([]apperrors.Problem, error) {
	t, err := l.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.processingProblems(ctx, t)
}

// AcknowledgmentErrors reports acknowledgment state for sent and accepted transactions.
func (l *lifecycleUseCase) AcknowledgmentErrors(
	ctx context.Context,
	id uuid.UUID,
) ([]transactionDomain.AckProblem, error) {
	t, err := l.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	state := transactionDomain.ContentPresent
	if t.Stage == transactionDomain.StageAccepted {
		if state, err = l.contentState(ctx, t); err != nil {
			return nil, err
		}
	}
	return transactionDomain.AcknowledgmentProblems(t, state), nil
}

func (l *lifecycleUseCase) processingProblems(
	ctx context.Context,
	t *transactionDomain.Transaction,
) ([]apperrors.Problem, error) {
	state, err := l.contentState(ctx, t)
	if err != nil {
		return nil, err
	}
	return transactionDomain.ProcessingProblems(t, state), nil
}

func (l *lifecycleUseCase) contentState(
	ctx context.Context,
	t *transactionDomain.Transaction,
) (transactionDomain.ContentState, error) {
	data, err := l.store.Read(ctx, t.ContentPath)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return transactionDomain.ContentMissing, nil
	}
	if err != nil {
		return 0, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return transactionDomain.ContentEmpty, nil
	}
	return transactionDomain.ContentPresent, nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return offset, limit
}

// List returns one page of transactions matching filter, newest first.
func (l *lifecycleUseCase) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (*TransactionPage, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidStage, "%q", filter.Stage)
	}
	filter.Offset, filter.Limit = normalizePage(filter.Offset, filter.Limit)

	items, err := l.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := l.transactionRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &TransactionPage{Items: items, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// ListByStage lists the transactions of one stage.
func (l *lifecycleUseCase) ListByStage(
	ctx context.Context,
	stage transactionDomain.Stage,
	offset, limit int,
) (*TransactionPage, error) {
	if !stage.Valid() {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidStage, "%q", stage)
	}
	return l.List(ctx, transactionDomain.TransactionFilter{Stage: stage, Offset: offset, Limit: limit})
}

// ListByPartner lists the transactions of one partner.
func (l *lifecycleUseCase) ListByPartner(
	ctx context.Context,
	partnerName string,
	offset, limit int,
) (*TransactionPage, error) {
	return l.List(ctx, transactionDomain.TransactionFilter{PartnerName: partnerName, Offset: offset, Limit: limit})
}

// ListByDocumentType lists the transactions of one document type.
func (l *lifecycleUseCase) ListByDocumentType(
	ctx context.Context,
	documentType string,
	offset, limit int,
) (*TransactionPage, error) {
	return l.List(ctx, transactionDomain.TransactionFilter{DocumentType: documentType, Offset: offset, Limit: limit})
}

// Search matches partner name, document number or filename case-insensitively.
func (l *lifecycleUseCase) Search(ctx context.Context, query string, offset, limit int) (*TransactionPage, error) {
	return l.List(ctx, transactionDomain.TransactionFilter{Query: query, Offset: offset, Limit: limit})
}

// FolderStats summarizes one stage. "Today" starts at midnight UTC.
func (l *lifecycleUseCase) FolderStats(
	ctx context.Context,
	stage transactionDomain.Stage,
) (*transactionDomain.FolderStats, error) {
	if !stage.Valid() {
		return nil, apperrors.Wrapf(transactionDomain.ErrInvalidStage, "%q", stage)
	}
	now := l.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return l.transactionRepo.Stats(ctx, stage, since)
}

// AllFolderStats summarizes every stage concurrently, in stage order.
func (l *lifecycleUseCase) AllFolderStats(ctx context.Context) ([]*transactionDomain.FolderStats, error) {
	stats := make([]*transactionDomain.FolderStats, len(transactionDomain.Stages))

	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range transactionDomain.Stages {
		g.Go(func() error {
			s, err := l.FolderStats(gctx, stage)
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Partners lists partner names of non-discarded transactions.
func (l *lifecycleUseCase) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	return l.transactionRepo.Partners(ctx)
}

// DocumentTypes merges the known document type table with the stored types and their counts.
func (l *lifecycleUseCase) DocumentTypes(ctx context.Context) ([]*transactionDomain.DocumentTypeSummary, error) {
	counts, err := l.transactionRepo.DocumentTypeCounts(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*transactionDomain.DocumentTypeSummary, 0, len(counts))
	known := make(map[string]bool)
	for _, dt := range edi.DocumentTypes() {
		known[dt.Code] = true
		summaries = append(summaries, &transactionDomain.DocumentTypeSummary{
			Code:  dt.Code,
			Name:  dt.Name,
			Count: counts[dt.Code],
		})
	}

	extra := make([]string, 0)
	for code := range counts {
		if !known[code] {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	for _, code := range extra {
		summaries = append(summaries, &transactionDomain.DocumentTypeSummary{
			Code:  code,
			Name:  edi.DocumentTypeName(code),
			Count: counts[code],
		})
	}

	return summaries, nil
}

// PurgeDiscarded permanently deletes transactions discarded more than olderThanDays ago.
// With dryRun it only reports how many would be deleted.
func (l *lifecycleUseCase) PurgeDiscarded(ctx context.Context, olderThanDays int, dryRun bool) (int, error) {
	if olderThanDays < 0 {
		return 0, apperrors.NewValidationError(apperrors.Problem{Field: "days", Message: "days must not be negative"})
	}

	cutoff := l.now().UTC().AddDate(0, 0, -olderThanDays)
	candidates, err := l.transactionRepo.FindModifiedBefore(
		ctx, transactionDomain.StageDiscarded, "", cutoff, maintenanceBatchSize,
	)
	if err != nil {
		return 0, err
	}
	if dryRun {
		return len(candidates), nil
	}

	purged := 0
	var errs []error
	for _, candidate := range candidates {
		deleted := false
		_, err := l.mutate(ctx, candidate.ID, func(t *transactionDomain.Transaction) error {
			if t.Stage != transactionDomain.StageDiscarded {
				return nil
			}
			deleted = true
			return l.permanentDelete(ctx, t)
		})
		switch {
		case apperrors.Is(err, transactionDomain.ErrTransactionNotFound):
		case err != nil:
			errs = append(errs, apperrors.Wrapf(err, "transaction %s", candidate.ID))
		case deleted:
			purged++
		}
	}

	return purged, apperrors.Join(errs...)
}

// RecoverStuck marks transactions left in processing for longer than olderThan as failed.
func (l *lifecycleUseCase) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := l.now().UTC().Add(-olderThan)
	candidates, err := l.transactionRepo.FindModifiedBefore(
		ctx, "", transactionDomain.StatusProcessing, cutoff, maintenanceBatchSize,
	)
	if err != nil {
		return 0, err
	}

	recovered := 0
	var errs []error
	for _, candidate := range candidates {
		changed := false
		_, err := l.mutate(ctx, candidate.ID, func(t *transactionDomain.Transaction) error {
			if t.Status != transactionDomain.StatusProcessing {
				return nil
			}
			changed = true
			t.Status = transactionDomain.StatusFailed
			t.ModifiedAt = l.now().UTC()
			entry := l.newEntry(ctx, t, transactionDomain.ActionEdited, t.Stage, t.Stage, map[string]any{
				"reason": "recovered_stuck",
				"old":    map[string]any{"status": string(transactionDomain.StatusProcessing)},
				"new":    map[string]any{"status": string(transactionDomain.StatusFailed)},
			})
			return l.commit(ctx, t, entry, "")
		})
		switch {
		case apperrors.Is(err, transactionDomain.ErrTransactionNotFound):
		case err != nil:
			errs = append(errs, apperrors.Wrapf(err, "transaction %s", candidate.ID))
		case changed:
			recovered++
		}
	}

	return recovered, apperrors.Join(errs...)
}

// CleanHistory deletes history entries older than olderThanDays.
func (l *lifecycleUseCase) CleanHistory(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	if olderThanDays < 0 {
		return 0, apperrors.NewValidationError(apperrors.Problem{Field: "days", Message: "days must not be negative"})
	}
	cutoff := l.now().UTC().AddDate(0, 0, -olderThanDays)
	return l.historyRepo.DeleteOlderThan(ctx, cutoff, dryRun)
}

// VerifyHistory checks the signature of every history entry within the optional bounds.
func (l *lifecycleUseCase) VerifyHistory(ctx context.Context, from, to *time.Time) (*HistoryVerification, error) {
	if l.signer == nil {
		return nil, transactionDomain.ErrSigningDisabled
	}

	result := &HistoryVerification{Invalid: make([]uuid.UUID, 0)}
	for offset := 0; ; offset += historyPageSize {
		entries, err := l.historyRepo.List(ctx, offset, historyPageSize, from, to)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			result.Checked++
			if !entry.IsSigned() {
				result.Unsigned++
				continue
			}
			if err := l.signer.Verify(entry); err != nil {
				result.Invalid = append(result.Invalid, entry.ID)
			}
		}

		if len(entries) < historyPageSize {
			return result, nil
		}
	}
}

// mutate runs fn on the current record while holding the per-id lock and returns the
// record as left by fn.
func (l *lifecycleUseCase) mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(t *transactionDomain.Transaction) error,
) (*transactionDomain.Transaction, error) {
	var result *transactionDomain.Transaction
	err := l.withLock(ctx, id, func() error {
		t, err := l.transactionRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *lifecycleUseCase) withLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	release, err := l.locker.Acquire(ctx, id.String())
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// relocate copies the content of t into target, verifies the copy, persists the new
// stage with its history entry and only then removes the old content.
func (l *lifecycleUseCase) relocate(
	ctx context.Context,
	t *transactionDomain.Transaction,
	target transactionDomain.Stage,
	now time.Time,
	action transactionDomain.Action,
	details map[string]any,
) error {
	fromStage, fromPath := t.Stage, t.ContentPath

	newPath, err := l.store.Copy(ctx, fromPath, string(target))
	if err != nil {
		return err
	}

	hash, err := l.store.Hash(ctx, newPath)
	if err != nil || hash != t.ContentHash {
		l.removeContent(ctx, newPath)
		if err != nil {
			return err
		}
		return apperrors.Wrapf(transactionDomain.ErrContentMismatch, "transaction %s", t.ID)
	}

	t.Stage = target
	t.ContentPath = newPath
	t.ModifiedAt = now
	switch target {
	case transactionDomain.StageAccepted:
		t.AcceptedAt = &now
	case transactionDomain.StageSent:
		t.SentAt = &now
	case transactionDomain.StageDiscarded:
		t.DiscardedAt = &now
	}

	entry := l.newEntry(ctx, t, action, fromStage, target, details)
	if err := l.commit(ctx, t, entry, newPath); err != nil {
		return err
	}

	l.removeContent(ctx, fromPath)
	return nil
}

// commit saves t and appends entry in one transaction. On failure the content written
// at written (if any) is removed before the error is returned.
func (l *lifecycleUseCase) commit(
	ctx context.Context,
	t *transactionDomain.Transaction,
	entry *transactionDomain.HistoryEntry,
	written string,
) error {
	err := l.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := l.transactionRepo.Save(txCtx, t); err != nil {
			return err
		}
		return l.appendHistory(txCtx, entry)
	})
	if err == nil || written == "" {
		return err
	}

	if delErr := l.store.Delete(context.WithoutCancel(ctx), written); delErr != nil {
		return apperrors.Join(err, delErr)
	}
	return err
}

func (l *lifecycleUseCase) newEntry(
	ctx context.Context,
	t *transactionDomain.Transaction,
	action transactionDomain.Action,
	from, to transactionDomain.Stage,
	details map[string]any,
) *transactionDomain.HistoryEntry {
	return &transactionDomain.HistoryEntry{
		ID:            uuid.Must(uuid.NewV7()),
		TransactionID: t.ID,
		Action:        action,
		FromStage:     from,
		ToStage:       to,
		Timestamp:     l.now().UTC(),
		Actor:         transactionDomain.ActorFrom(ctx),
		Details:       details,
	}
}

func (l *lifecycleUseCase) appendHistory(ctx context.Context, entry *transactionDomain.HistoryEntry) error {
	if l.signer != nil {
		signature, err := l.signer.Sign(entry)
		if err != nil {
			return apperrors.Wrap(err, "failed to sign history entry")
		}
		entry.Signature = signature
	}
	return l.historyRepo.Append(ctx, entry)
}

// removeContent deletes superseded content. A failure leaves an orphaned object
// behind but does not affect the committed record.
func (l *lifecycleUseCase) removeContent(ctx context.Context, p string) {
	if err := l.store.Delete(context.WithoutCancel(ctx), p); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		l.logger.WarnContext(ctx, "failed to remove content",
			slog.String("content_path", p),
			slog.Any("error", err),
		)
	}
}
