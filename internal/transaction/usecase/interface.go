// Package usecase implements the transaction lifecycle engine. It orchestrates the content
// store, the transaction and history repositories, the per-id locker and the transmitter so
// that content and metadata records stay consistent across every stage transition.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/content"
	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// TransactionRepository defines the interface for Transaction persistence operations.
// Listing by stage is expressed as List with TransactionFilter.Stage set.
type TransactionRepository interface {
	Save(ctx context.Context, t *transactionDomain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter transactionDomain.TransactionFilter) ([]*transactionDomain.Transaction, error)
	Count(ctx context.Context, filter transactionDomain.TransactionFilter) (int64, error)
	FindModifiedBefore(
		ctx context.Context,
		stage transactionDomain.Stage,
		status transactionDomain.Status,
		before time.Time,
		limit int,
	) ([]*transactionDomain.Transaction, error)
	Stats(ctx context.Context, stage transactionDomain.Stage, since time.Time) (*transactionDomain.FolderStats, error)
	Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error)
	DocumentTypeCounts(ctx context.Context) (map[string]int64, error)
}

// HistoryRepository defines the interface for the append-only history log.
type HistoryRepository interface {
	Append(ctx context.Context, entry *transactionDomain.HistoryEntry) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*transactionDomain.HistoryEntry, error)
	List(ctx context.Context, offset, limit int, from, to *time.Time) ([]*transactionDomain.HistoryEntry, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// ContentStore is the subset of content.Store used by the lifecycle engine.
type ContentStore interface {
	Save(ctx context.Context, stage, name string, data []byte) (content.Info, error)
	Write(ctx context.Context, p string, data []byte) (content.Info, error)
	Copy(ctx context.Context, from, toStage string) (string, error)
	CopyTo(ctx context.Context, from, to string) error
	Delete(ctx context.Context, p string) error
	Read(ctx context.Context, p string) ([]byte, error)
	Hash(ctx context.Context, p string) (string, error)
}

// Transmitter hands outbound content to the trading partner channel and returns a receipt.
// Implementations must honor ctx cancellation.
type Transmitter interface {
	Transmit(ctx context.Context, t *transactionDomain.Transaction, data []byte) (string, error)
}

// HistorySigner signs history entries and verifies stored signatures.
type HistorySigner interface {
	Sign(entry *transactionDomain.HistoryEntry) ([]byte, error)
	Verify(entry *transactionDomain.HistoryEntry) error
}

// CreateInput holds the fields of a new transaction. A nil Content is generated from Metadata.
type CreateInput struct {
	Stage          transactionDomain.Stage
	Filename       string
	PartnerName    string
	PartnerID      string
	DocumentType   string
	DocumentNumber string
	Metadata       *edi.Metadata
	Content        []byte
}

// UpdateInput holds the fields to change. Nil fields are left untouched.
type UpdateInput struct {
	Filename       *string
	PartnerName    *string
	PartnerID      *string
	DocumentType   *string
	DocumentNumber *string
	Status         *transactionDomain.Status
	Metadata       *edi.Metadata
	Content        []byte
}

// AckInput is a trading partner acknowledgment for a sent transaction.
type AckInput struct {
	Status  transactionDomain.AckStatus
	Message string
}

// ContentResult is raw transaction content verified against the recorded hash.
type ContentResult struct {
	Content  []byte
	Size     int64
	Hash     string
	Format   edi.Format
	Filename string
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Items  []*transactionDomain.Transaction
	Total  int64
	Offset int
	Limit  int
}

// HistoryVerification reports the outcome of a signature sweep over the history log.
type HistoryVerification struct {
	Checked  int         `json:"checked"`
	Unsigned int         `json:"unsigned"`
	Invalid  []uuid.UUID `json:"invalid"`
}

// LifecycleUseCase defines the transaction lifecycle operations. Every mutating operation is
// serialized per transaction id.
type LifecycleUseCase interface {
	Create(ctx context.Context, input CreateInput) (*transactionDomain.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*transactionDomain.Transaction, error)
	Move(ctx context.Context, id uuid.UUID, target transactionDomain.Stage) (*transactionDomain.Transaction, error)
	Accept(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error)
	Send(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID, permanent bool) error
	Restore(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error)
	Acknowledge(ctx context.Context, id uuid.UUID, input AckInput) (*transactionDomain.Transaction, error)

	Get(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error)
	Content(ctx context.Context, id uuid.UUID) (*ContentResult, error)
	VerifyIntegrity(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]*transactionDomain.HistoryEntry, error)
	ValidateForProcessing(ctx context.Context, id uuid.UUID) ([]apperrors.Problem, error)
	AcknowledgmentErrors(ctx context.Context, id uuid.UUID) ([]transactionDomain.AckProblem, error)

	List(ctx context.Context, filter transactionDomain.TransactionFilter) (*TransactionPage, error)
	ListByStage(ctx context.Context, stage transactionDomain.Stage, offset, limit int) (*TransactionPage, error)
	ListByPartner(ctx context.Context, partnerName string, offset, limit int) (*TransactionPage, error)
	ListByDocumentType(ctx context.Context, documentType string, offset, limit int) (*TransactionPage, error)
	Search(ctx context.Context, query string, offset, limit int) (*TransactionPage, error)
	FolderStats(ctx context.Context, stage transactionDomain.Stage) (*transactionDomain.FolderStats, error)
	AllFolderStats(ctx context.Context) ([]*transactionDomain.FolderStats, error)
	Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error)
	DocumentTypes(ctx context.Context) ([]*transactionDomain.DocumentTypeSummary, error)

	PurgeDiscarded(ctx context.Context, olderThanDays int, dryRun bool) (int, error)
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error)
	CleanHistory(ctx context.Context, olderThanDays int, dryRun bool) (int64, error)
	VerifyHistory(ctx context.Context, from, to *time.Time) (*HistoryVerification, error)
}
