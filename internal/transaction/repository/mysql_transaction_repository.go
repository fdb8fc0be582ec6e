package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/database"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// MySQLTransactionRepository implements Transaction persistence for MySQL.
// Uses BINARY(16) for UUID storage and JSON metadata with transaction support via database.GetTx().
type MySQLTransactionRepository struct {
	db *sql.DB
}

// NewMySQLTransactionRepository creates a new MySQL Transaction repository.
func NewMySQLTransactionRepository(db *sql.DB) *MySQLTransactionRepository {
	return &MySQLTransactionRepository{db: db}
}

func scanMySQLTransaction(s rowScanner) (*transactionDomain.Transaction, error) {
	var t transactionDomain.Transaction
	var row transactionRow
	var idBytes []byte

	err := s.Scan(
		&idBytes,
		&t.Filename,
		&row.stage,
		&t.PartnerName,
		&row.partnerID,
		&t.DocumentType,
		&row.documentNumber,
		&t.ContentPath,
		&t.ContentSize,
		&t.ContentHash,
		&row.status,
		&row.metadata,
		&row.ackStatus,
		&row.ackMessage,
		&t.CreatedAt,
		&t.ModifiedAt,
		&row.acceptedAt,
		&row.sentAt,
		&row.acknowledgedAt,
		&row.discardedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := t.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := row.apply(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save inserts the transaction or updates every column when the id already exists.
func (m *MySQLTransactionRepository) Save(ctx context.Context, t *transactionDomain.Transaction) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}

	id, err := t.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				filename = VALUES(filename),
				stage = VALUES(stage),
				partner_name = VALUES(partner_name),
				partner_id = VALUES(partner_id),
				document_type = VALUES(document_type),
				document_number = VALUES(document_number),
				content_path = VALUES(content_path),
				content_size = VALUES(content_size),
				content_hash = VALUES(content_hash),
				status = VALUES(status),
				metadata = VALUES(metadata),
				acknowledgment_status = VALUES(acknowledgment_status),
				acknowledgment_message = VALUES(acknowledgment_message),
				modified_at = VALUES(modified_at),
				accepted_at = VALUES(accepted_at),
				sent_at = VALUES(sent_at),
				acknowledged_at = VALUES(acknowledged_at),
				discarded_at = VALUES(discarded_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		t.Filename,
		string(t.Stage),
		t.PartnerName,
		t.PartnerID,
		t.DocumentType,
		t.DocumentNumber,
		t.ContentPath,
		t.ContentSize,
		t.ContentHash,
		string(t.Status),
		metadataJSON,
		nullString(string(t.AcknowledgmentStatus)),
		t.AcknowledgmentMessage,
		t.CreatedAt,
		t.ModifiedAt,
		nullTime(t.AcceptedAt),
		nullTime(t.SentAt),
		nullTime(t.AcknowledgedAt),
		nullTime(t.DiscardedAt),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to save transaction")
	}

	return nil
}

// FindByID retrieves a transaction by id. Returns ErrTransactionNotFound when absent.
func (m *MySQLTransactionRepository) FindByID(
	ctx context.Context,
	id uuid.UUID,
) (*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal transaction id")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	t, err := scanMySQLTransaction(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transactionDomain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transaction")
	}
	return t, nil
}

// Delete removes the transaction row. Returns ErrTransactionNotFound when absent.
func (m *MySQLTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete transaction")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return transactionDomain.ErrTransactionNotFound
	}

	return nil
}

// List returns transactions matching filter, newest first.
func (m *MySQLTransactionRepository) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) ([]*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := filterClause(filter, questionPlaceholder)
	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ` + questionPlaceholder(len(args)-1) +
		` OFFSET ` + questionPlaceholder(len(args))

	return m.query(ctx, querier, query, args...)
}

// Count returns the number of transactions matching filter, ignoring pagination.
func (m *MySQLTransactionRepository) Count(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := filterClause(filter, questionPlaceholder)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count transactions")
	}
	return count, nil
}

// FindModifiedBefore returns transactions last modified before the given time, oldest first.
// Empty stage or status are not used as filters.
func (m *MySQLTransactionRepository) FindModifiedBefore(
	ctx context.Context,
	stage transactionDomain.Stage,
	status transactionDomain.Status,
	before time.Time,
	limit int,
) ([]*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE modified_at < ?
			    AND (? = '' OR stage = ?)
			    AND (? = '' OR status = ?)
			  ORDER BY modified_at ASC
			  LIMIT ?`

	return m.query(ctx, querier, query, before, string(stage), string(stage), string(status), string(status), limit)
}

// Stats aggregates a stage by status and document type in a single grouped query.
func (m *MySQLTransactionRepository) Stats(
	ctx context.Context,
	stage transactionDomain.Stage,
	since time.Time,
) (*transactionDomain.FolderStats, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, document_type, COUNT(*),
				SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END)
			  FROM transactions
			  WHERE stage = ?
			  GROUP BY status, document_type`

	rows, err := querier.QueryContext(ctx, query, since, string(stage))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate transactions")
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := newFolderStats(stage)
	for rows.Next() {
		var status, documentType string
		var count, today int64
		if err := rows.Scan(&status, &documentType, &count, &today); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transaction stats")
		}
		foldStats(stats, status, documentType, count, today)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transaction stats")
	}

	return stats, nil
}

// Partners lists distinct partner names of non-discarded transactions with counts.
func (m *MySQLTransactionRepository) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT partner_name, COUNT(*), MAX(modified_at)
			  FROM transactions
			  WHERE stage <> ?
			  GROUP BY partner_name
			  ORDER BY partner_name`

	rows, err := querier.QueryContext(ctx, query, string(transactionDomain.StageDiscarded))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list partners")
	}
	defer func() {
		_ = rows.Close()
	}()

	partners := make([]*transactionDomain.PartnerSummary, 0)
	for rows.Next() {
		var s transactionDomain.PartnerSummary
		if err := rows.Scan(&s.PartnerName, &s.Count, &s.LastActivity); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan partner")
		}
		s.LastActivity = s.LastActivity.UTC()
		partners = append(partners, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate partners")
	}

	return partners, nil
}

// DocumentTypeCounts returns the number of transactions per document type.
func (m *MySQLTransactionRepository) DocumentTypeCounts(ctx context.Context) (map[string]int64, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, `SELECT document_type, COUNT(*) FROM transactions GROUP BY document_type`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count document types")
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var documentType string
		var count int64
		if err := rows.Scan(&documentType, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan document type count")
		}
		counts[documentType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate document type counts")
	}

	return counts, nil
}

func (m *MySQLTransactionRepository) query(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*transactionDomain.Transaction, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transactions")
	}
	defer func() {
		_ = rows.Close()
	}()

	transactions := make([]*transactionDomain.Transaction, 0)
	for rows.Next() {
		t, err := scanMySQLTransaction(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transaction")
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transactions")
	}

	return transactions, nil
}
