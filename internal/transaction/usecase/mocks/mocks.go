// Package mocks provides mock implementations of the lifecycle use case and its dependencies.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/edibox/internal/content"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/usecase"
)

// MockLifecycleUseCase is a mock implementation of usecase.LifecycleUseCase.
type MockLifecycleUseCase struct {
	mock.Mock
}

func (m *MockLifecycleUseCase) transaction(args mock.Arguments) (*transactionDomain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transactionDomain.Transaction), args.Error(1)
}

func (m *MockLifecycleUseCase) page(args mock.Arguments) (*usecase.TransactionPage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.TransactionPage), args.Error(1)
}

// Create mocks the Create method.
func (m *MockLifecycleUseCase) Create(
	ctx context.Context,
	input usecase.CreateInput,
) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, input))
}

// Update mocks the Update method.
func (m *MockLifecycleUseCase) Update(
	ctx context.Context,
	id uuid.UUID,
	input usecase.UpdateInput,
) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id, input))
}

// Move mocks the Move method.
func (m *MockLifecycleUseCase) Move(
	ctx context.Context,
	id uuid.UUID,
	target transactionDomain.Stage,
) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id, target))
}

// Accept mocks the Accept method.
func (m *MockLifecycleUseCase) Accept(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id))
}

// Send mocks the Send method.
func (m *MockLifecycleUseCase) Send(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id))
}

// Delete mocks the Delete method.
func (m *MockLifecycleUseCase) Delete(ctx context.Context, id uuid.UUID, permanent bool) error {
	args := m.Called(ctx, id, permanent)
	return args.Error(0)
}

// Restore mocks the Restore method.
func (m *MockLifecycleUseCase) Restore(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id))
}

// Acknowledge mocks the Acknowledge method.
func (m *MockLifecycleUseCase) Acknowledge(
	ctx context.Context,
	id uuid.UUID,
	input usecase.AckInput,
) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id, input))
}

// Get mocks the Get method.
func (m *MockLifecycleUseCase) Get(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error) {
	return m.transaction(m.Called(ctx, id))
}

// Content mocks the Content method.
func (m *MockLifecycleUseCase) Content(ctx context.Context, id uuid.UUID) (*usecase.ContentResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ContentResult), args.Error(1)
}

// VerifyIntegrity mocks the VerifyIntegrity method.
func (m *MockLifecycleUseCase) VerifyIntegrity(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// History mocks the History method.
func (m *MockLifecycleUseCase) History(
	ctx context.Context,
	id uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactionDomain.HistoryEntry), args.Error(1)
}

// ValidateForProcessing mocks the ValidateForProcessing method.
func (m *MockLifecycleUseCase) ValidateForProcessing(ctx context.Context, id uuid.UUID) ([]apperrors.Problem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apperrors.Problem), args.Error(1)
}

// AcknowledgmentErrors mocks the AcknowledgmentErrors method.
func (m *MockLifecycleUseCase) AcknowledgmentErrors(
	ctx context.Context,
	id uuid.UUID,
) ([]transactionDomain.AckProblem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transactionDomain.AckProblem), args.Error(1)
}

// List mocks the List method.
func (m *MockLifecycleUseCase) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (*usecase.TransactionPage, error) {
	return m.page(m.Called(ctx, filter))
}

// ListByStage mocks the ListByStage method.
func (m *MockLifecycleUseCase) ListByStage(
	ctx context.Context,
	stage transactionDomain.Stage,
	offset, limit int,
) (*usecase.TransactionPage, error) {
	return m.page(m.Called(ctx, stage, offset, limit))
}

// ListByPartner mocks the ListByPartner method.
func (m *MockLifecycleUseCase) ListByPartner(
	ctx context.Context,
	partnerName string,
	offset, limit int,
) (*usecase.TransactionPage, error) {
	return m.page(m.Called(ctx, partnerName, offset, limit))
}

// ListByDocumentType mocks the ListByDocumentType method.
func (m *MockLifecycleUseCase) ListByDocumentType(
	ctx context.Context,
	documentType string,
	offset, limit int,
) (*usecase.TransactionPage, error) {
	return m.page(m.Called(ctx, documentType, offset, limit))
}

// Search mocks the Search method.
func (m *MockLifecycleUseCase) Search(
	ctx context.Context,
	query string,
	offset, limit int,
) (*usecase.TransactionPage, error) {
	return m.page(m.Called(ctx, query, offset, limit))
}

// FolderStats mocks the FolderStats method.
func (m *MockLifecycleUseCase) FolderStats(
	ctx context.Context,
	stage transactionDomain.Stage,
) (*transactionDomain.FolderStats, error) {
	args := m.Called(ctx, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transactionDomain.FolderStats), args.Error(1)
}

// AllFolderStats mocks the AllFolderStats method.
func (m *MockLifecycleUseCase) AllFolderStats(ctx context.Context) ([]*transactionDomain.FolderStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactionDomain.FolderStats), args.Error(1)
}

// Partners mocks the Partners method.
func (m *MockLifecycleUseCase) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactionDomain.PartnerSummary), args.Error(1)
}

// DocumentTypes mocks the DocumentTypes method.
func (m *MockLifecycleUseCase) DocumentTypes(ctx context.Context) ([]*transactionDomain.DocumentTypeSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactionDomain.DocumentTypeSummary), args.Error(1)
}

// PurgeDiscarded mocks the PurgeDiscarded method.
func (m *MockLifecycleUseCase) PurgeDiscarded(ctx context.Context, olderThanDays int, dryRun bool) (int, error) {
	args := m.Called(ctx, olderThanDays, dryRun)
	return args.Int(0), args.Error(1)
}

// RecoverStuck mocks the RecoverStuck method.
func (m *MockLifecycleUseCase) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

// CleanHistory mocks the CleanHistory method.
func (m *MockLifecycleUseCase) CleanHistory(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThanDays, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// VerifyHistory mocks the VerifyHistory method.
func (m *MockLifecycleUseCase) VerifyHistory(
	ctx context.Context,
	from, to *time.Time,
) (*usecase.HistoryVerification, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.HistoryVerification), args.Error(1)
}

// MockTransmitter is a mock implementation of usecase.Transmitter.
type MockTransmitter struct {
	mock.Mock
}

// Transmit mocks the Transmit method.
func (m *MockTransmitter) Transmit(
	ctx context.Context,
	t *transactionDomain.Transaction,
	data []byte,
) (string, error) {
	args := m.Called(ctx, t, data)
	return args.String(0), args.Error(1)
}

// MockHistorySigner is a mock implementation of usecase.HistorySigner.
type MockHistorySigner struct {
	mock.Mock
}

// Sign mocks the Sign method.
func (m *MockHistorySigner) Sign(entry *transactionDomain.HistoryEntry) ([]byte, error) {
	args := m.Called(entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Verify mocks the Verify method.
func (m *MockHistorySigner) Verify(entry *transactionDomain.HistoryEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

// MockContentStore is a mock implementation of usecase.ContentStore.
type MockContentStore struct {
	mock.Mock
}

// Save mocks the Save method.
func (m *MockContentStore) Save(ctx context.Context, stage, name string, data []byte) (content.Info, error) {
	args := m.Called(ctx, stage, name, data)
	return args.Get(0).(content.Info), args.Error(1)
}

// Write mocks the Write method.
func (m *MockContentStore) Write(ctx context.Context, p string, data []byte) (content.Info, error) {
	args := m.Called(ctx, p, data)
	return args.Get(0).(content.Info), args.Error(1)
}

// Copy mocks the Copy method.
func (m *MockContentStore) Copy(ctx context.Context, from, toStage string) (string, error) {
	args := m.Called(ctx, from, toStage)
	return args.String(0), args.Error(1)
}

// CopyTo mocks the CopyTo method.
func (m *MockContentStore) CopyTo(ctx context.Context, from, to string) error {
	args := m.Called(ctx, from, to)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockContentStore) Delete(ctx context.Context, p string) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// Read mocks the Read method.
func (m *MockContentStore) Read(ctx context.Context, p string) ([]byte, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Hash mocks the Hash method.
func (m *MockContentStore) Hash(ctx context.Context, p string) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}
