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

// PostgreSQLHistoryRepository implements HistoryEntry persistence for PostgreSQL.
// Entries are append-only; only retention cleanup removes rows.
type PostgreSQLHistoryRepository struct {
	db *sql.DB
}

// NewPostgreSQLHistoryRepository creates a new PostgreSQL history repository.
func NewPostgreSQLHistoryRepository(db *sql.DB) *PostgreSQLHistoryRepository {
	return &PostgreSQLHistoryRepository{db: db}
}

// Append inserts a history entry. Nil details are stored as NULL.
func (p *PostgreSQLHistoryRepository) Append(ctx context.Context, entry *transactionDomain.HistoryEntry) error {
	querier := database.GetTx(ctx, p.db)

	detailsJSON, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}

	query := `INSERT INTO transaction_history (` + historyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.TransactionID,
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
func (p *PostgreSQLHistoryRepository) ListByTransaction(
	ctx context.Context,
	transactionID uuid.UUID,
) ([]*transactionDomain.HistoryEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + historyColumns + ` FROM transaction_history
			  WHERE transaction_id = $1
			  ORDER BY created_at ASC, id ASC`

	return p.query(ctx, querier, query, transactionID)
}

// List retrieves entries ordered by creation time (oldest first) with pagination and
// optional inclusive time bounds (nil means unbounded).
func (p *PostgreSQLHistoryRepository) List(
	ctx context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*transactionDomain.HistoryEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + historyColumns + ` FROM transaction_history
			  WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			    AND ($2::timestamptz IS NULL OR created_at <= $2)
			  ORDER BY created_at ASC, id ASC
			  LIMIT $3 OFFSET $4`

	return p.query(ctx, querier, query, nullTime(from), nullTime(to), limit, offset)
}

// DeleteOlderThan removes entries created before olderThan. With dryRun it only counts them.
func (p *PostgreSQLHistoryRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	if dryRun {
		var count int64
		query := `SELECT COUNT(*) FROM transaction_history WHERE created_at < $1`
		if err := querier.QueryRowContext(ctx, query, olderThan).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count history entries")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM transaction_history WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete history entries")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

func (p *PostgreSQLHistoryRepository) query(
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

		err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
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
