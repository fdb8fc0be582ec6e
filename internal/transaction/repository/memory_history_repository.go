package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/database"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// MemoryHistoryRepository is an append-only in-memory history log.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries []*transactionDomain.HistoryEntry
}

// NewMemoryHistoryRepository creates an empty in-memory history repository.
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{entries: make([]*transactionDomain.HistoryEntry, 0)}
}

// Append stores a copy of entry.
func (m *MemoryHistoryRepository) Append(ctx context.Context, entry *transactionDomain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, cloneEntry(entry))

	id := entry.ID
	database.RecordUndo(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i := len(m.entries) - 1; i >= 0; i-- {
			if m.entries[i].ID == id {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				return
			}
		}
	})
	return nil
}

// ListByTransaction returns the entries of a transaction in chronological order.
func (m *MemoryHistoryRepository) ListByTransaction(
	_ context.Context,
	transactionID uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*transactionDomain.HistoryEntry, 0)
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			entries = append(entries, cloneEntry(e))
		}
	}
	sortEntries(entries)
	return entries, nil
}

// List returns entries within the optional inclusive bounds, oldest first.
func (m *MemoryHistoryRepository) List(
	_ context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*transactionDomain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*transactionDomain.HistoryEntry, 0)
	for _, e := range m.entries {
		if from != nil && e.Timestamp.Before(*from) {
			continue
		}
		if to != nil && e.Timestamp.After(*to) {
			continue
		}
		entries = append(entries, cloneEntry(e))
	}
	sortEntries(entries)
	return page(entries, offset, limit), nil
}

// DeleteOlderThan removes entries older than olderThan. With dryRun it only counts them.
func (m *MemoryHistoryRepository) DeleteOlderThan(
	_ context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]*transactionDomain.HistoryEntry, 0, len(m.entries))
	var removed int64
	for _, e := range m.entries {
		if e.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if !dryRun {
		m.entries = kept
	}
	return removed, nil
}

func sortEntries(entries []*transactionDomain.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

func cloneEntry(e *transactionDomain.HistoryEntry) *transactionDomain.HistoryEntry {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	if e.Signature != nil {
		c.Signature = append([]byte(nil), e.Signature...)
	}
	return &c
}
