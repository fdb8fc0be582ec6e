package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/database"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// MySQLHistoryRepository implements HistoryEntry persistence for MySQL.
// UUIDs are stored as BINARY(16) and must be marshaled.
type MySQLHistoryRepository struct {
	db *sql.DB
}

// NewMySQLHistoryRepository creates a new MySQL history repository.
func NewMySQLHistoryRepository(db *sql.DB) *MySQLHistoryRepository {
	return &MySQLHistoryRepository{db: db}
}

// Append inserts a history entry. Nil details are stored as NULL.
func (m *MySQLHistoryRepository) Append(ctx context.Context, entry *transactionDomain.HistoryEntry) error {
	querier := database.GetTx(ctx, m.db)

	detailsJSON, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal history entry id")
	}

	transactionID, err := entry.TransactionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal history transaction_id")
	}

	query := `INSERT INTO transaction_history (` + historyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		transactionID,
		string(entry.Action),
		nullString(string(entry.FromStage)),
		nullString(string(entry.ToStage)),
		nullString(entry.Actor),
		detailsJSON,
		entry.Signature,
		entry.Timestamp,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to append history entry")
	}

	return nil
}

// ListByTransaction returns every entry of a transaction in chronological order.
func (m *MySQLHistoryRepository) ListByTransaction(
	ctx context.Context,
	transactionID uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := transactionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal transaction id")
	}

	query := `SELECT ` + historyColumns + ` FROM transaction_history
			  WHERE transaction_id = ?
			  ORDER BY created_at ASC, id ASC`

	return m.query(ctx, querier, query, idBytes)
}

// List retrieves entries ordered by creation time (oldest first) with pagination and
// optional inclusive time bounds (nil means unbounded).
func (m *MySQLHistoryRepository) List(
	ctx context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*transactionDomain.HistoryEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + historyColumns + ` FROM transaction_history
			  WHERE (? IS NULL OR created_at >= ?)
			    AND (? IS NULL OR created_at <= ?)
			  ORDER BY created_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	fromArg, toArg := nullTime(from), nullTime(to)
	return m.query(ctx, querier, query, fromArg, fromArg, toArg, toArg, limit, offset)
}

// DeleteOlderThan removes entries created before olderThan. With dryRun it only counts them.
func (m *MySQLHistoryRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	if dryRun {
		var count int64
		query := `SELECT COUNT(*) FROM transaction_history WHERE created_at < ?`
		if err := querier.QueryRowContext(ctx, query, olderThan).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count history entries")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM transaction_history WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete history entries")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

func (m *MySQLHistoryRepository) query(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*transactionDomain.HistoryEntry, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list history entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*transactionDomain.HistoryEntry, 0)
	for rows.Next() {
		var entry transactionDomain.HistoryEntry
		var row historyRow
		var idBytes, transactionIDBytes []byte

		err := rows.Scan(
			&idBytes,
			&transactionIDBytes,
			&row.action,
			&row.fromStage,
			&row.toStage,
			&row.actor,
			&row.details,
			&row.signature,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan history entry")
		}
		if err := entry.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal history entry id")
		}
		if err := entry.TransactionID.UnmarshalBinary(transactionIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal history transaction_id")
		}
		if err := row.apply(&entry); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate history entries")
	}

	return entries, nil
}
