package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/database"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// MemoryTransactionRepository keeps transactions in a map guarded by a RWMutex.
// Records are cloned on the way in and out so callers never share state with the store.
// Mutations register undo functions with database.RecordUndo and are reverted when the
// enclosing journal transaction fails.
type MemoryTransactionRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*transactionDomain.Transaction
}

// NewMemoryTransactionRepository creates an empty in-memory transaction repository.
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{items: make(map[uuid.UUID]*transactionDomain.Transaction)}
}

// Save inserts or replaces the transaction.
func (m *MemoryTransactionRepository) Save(ctx context.Context, t *transactionDomain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, existed := m.items[t.ID]
	m.items[t.ID] = t.Clone()

	database.RecordUndo(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existed {
			m.items[t.ID] = previous
			return
		}
		delete(m.items, t.ID)
	})
	return nil
}

// FindByID returns a copy of the transaction or ErrTransactionNotFound.
func (m *MemoryTransactionRepository) FindByID(
	_ context.Context,
	id uuid.UUID,
) (*transactionDomain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.items[id]
	if !ok {
		return nil, transactionDomain.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

// Delete removes the transaction or returns ErrTransactionNotFound.
func (m *MemoryTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.items[id]
	if !ok {
		return transactionDomain.ErrTransactionNotFound
	}
	delete(m.items, id)

	database.RecordUndo(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.items[id] = previous
	})
	return nil
}

// List returns transactions matching filter, newest first.
func (m *MemoryTransactionRepository) List(
	_ context.Context,
	filter transactionDomain.TransactionFilter,
) ([]*transactionDomain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, filter.Offset, filter.Limit), nil
}

// Count returns the number of transactions matching filter, ignoring pagination.
func (m *MemoryTransactionRepository) Count(
	_ context.Context,
	filter transactionDomain.TransactionFilter,
) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.match(filter))), nil
}

// FindModifiedBefore returns transactions last modified before the given time, oldest first.
func (m *MemoryTransactionRepository) FindModifiedBefore(
	_ context.Context,
	stage transactionDomain.Stage,
	status transactionDomain.Status,
	before time.Time,
	limit int,
) ([]*transactionDomain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*transactionDomain.Transaction, 0)
	for _, t := range m.items {
		if stage != "" && t.Stage != stage {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if !t.ModifiedAt.Before(before) {
			continue
		}
		matched = append(matched, t.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ModifiedAt.Before(matched[j].ModifiedAt)
	})

	return page(matched, 0, limit), nil
}

// Stats aggregates one stage by status and document type.
func (m *MemoryTransactionRepository) Stats(
	_ context.Context,
	stage transactionDomain.Stage,
	since time.Time,
) (*transactionDomain.FolderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newFolderStats(stage)
	for _, t := range m.items {
		if t.Stage != stage {
			continue
		}
		var today int64
		if !t.CreatedAt.Before(since) {
			today = 1
		}
		foldStats(stats, string(t.Status), t.DocumentType, 1, today)
	}
	return stats, nil
}

// Partners lists distinct partner names of non-discarded transactions, sorted by name.
func (m *MemoryTransactionRepository) Partners(_ context.Context) ([]*transactionDomain.PartnerSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := make(map[string]*transactionDomain.PartnerSummary)
	for _, t := range m.items {
		if t.Stage == transactionDomain.StageDiscarded {
			continue
		}
		s, ok := byName[t.PartnerName]
		if !ok {
			s = &transactionDomain.PartnerSummary{PartnerName: t.PartnerName}
			byName[t.PartnerName] = s
		}
		s.Count++
		if t.ModifiedAt.After(s.LastActivity) {
			s.LastActivity = t.ModifiedAt
		}
	}

	partners := make([]*transactionDomain.PartnerSummary, 0, len(byName))
	for _, s := range byName {
		partners = append(partners, s)
	}
	sort.Slice(partners, func(i, j int) bool {
		return partners[i].PartnerName < partners[j].PartnerName
	})
	return partners, nil
}

// DocumentTypeCounts returns the number of transactions per document type.
func (m *MemoryTransactionRepository) DocumentTypeCounts(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, t := range m.items {
		counts[t.DocumentType]++
	}
	return counts, nil
}

// match returns clones of the transactions accepted by filter. Callers hold the read lock.
func (m *MemoryTransactionRepository) match(
	filter transactionDomain.TransactionFilter,
) []*transactionDomain.Transaction {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	matched := make([]*transactionDomain.Transaction, 0)
	for _, t := range m.items {
		if filter.Stage != "" && t.Stage != filter.Stage {
			continue
		}
		if filter.PartnerName != "" && t.PartnerName != filter.PartnerName {
			continue
		}
		if filter.DocumentType != "" && t.DocumentType != filter.DocumentType {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.PartnerName), query) &&
			!strings.Contains(strings.ToLower(t.DocumentNumber), query) &&
			!strings.Contains(strings.ToLower(t.Filename), query) {
			continue
		}
		matched = append(matched, t.Clone())
	}
	return matched
}

// page applies offset and limit. A non-positive limit returns everything after offset.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return make([]T, 0)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
