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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLTransactionRepository implements Transaction persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLTransactionRepository struct {
	db *sql.DB
}

// NewPostgreSQLTransactionRepository creates a new PostgreSQL Transaction repository.
func NewPostgreSQLTransactionRepository(db *sql.DB) *PostgreSQLTransactionRepository {
	return &PostgreSQLTransactionRepository{db: db}
}

func scanPostgreSQLTransaction(s rowScanner) (*transactionDomain.Transaction, error) {
	var t transactionDomain.Transaction
	var row transactionRow

	err := s.Scan(
		&t.ID,
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
	if err := row.apply(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save inserts the transaction or updates every column when the id already exists.
func (p *PostgreSQLTransactionRepository) Save(ctx context.Context, t *transactionDomain.Transaction) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			  ON CONFLICT (id) DO UPDATE SET
				filename = EXCLUDED.filename,
				stage = EXCLUDED.stage,
				partner_name = EXCLUDED.partner_name,
				partner_id = EXCLUDED.partner_id,
				document_type = EXCLUDED.document_type,
				document_number = EXCLUDED.document_number,
				content_path = EXCLUDED.content_path,
				content_size = EXCLUDED.content_size,
				content_hash = EXCLUDED.content_hash,
				status = EXCLUDED.status,
				metadata = EXCLUDED.metadata,
				acknowledgment_status = EXCLUDED.acknowledgment_status,
				acknowledgment_message = EXCLUDED.acknowledgment_message,
				modified_at = EXCLUDED.modified_at,
				accepted_at = EXCLUDED.accepted_at,
				sent_at = EXCLUDED.sent_at,
				acknowledged_at = EXCLUDED.acknowledged_at,
				discarded_at = EXCLUDED.discarded_at`

	_, err = querier.ExecContext(
		ctx,
		query,
		t.ID,
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
func (p *PostgreSQLTransactionRepository) FindByID(
	ctx context.Context,
	id uuid.UUID,
) (*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanPostgreSQLTransaction(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transactionDomain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get transaction")
	}
	return t, nil
}

// Delete removes the transaction row. Returns ErrTransactionNotFound when absent.
func (p *PostgreSQLTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
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
func (p *PostgreSQLTransactionRepository) List(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) ([]*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := filterClause(filter, dollarPlaceholder)
	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ` + dollarPlaceholder(len(args)-1) +
		` OFFSET ` + dollarPlaceholder(len(args))

	return p.query(ctx, querier, query, args...)
}

// Count returns the number of transactions matching filter, ignoring pagination.
func (p *PostgreSQLTransactionRepository) Count(
	ctx context.Context,
	filter transactionDomain.TransactionFilter,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := filterClause(filter, dollarPlaceholder)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count transactions")
	}
	return count, nil
}

// FindModifiedBefore returns transactions last modified before the given time, oldest first.
// Empty stage or status are not used as filters.
func (p *PostgreSQLTransactionRepository) FindModifiedBefore(
	ctx context.Context,
	stage transactionDomain.Stage,
	status transactionDomain.Status,
	before time.Time,
	limit int,
) ([]*transactionDomain.Transaction, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE modified_at < $1
			    AND ($2 = '' OR stage = $2)
			    AND ($3 = '' OR status = $3)
			  ORDER BY modified_at ASC
			  LIMIT $4`

	return p.query(ctx, querier, query, before, string(stage), string(status), limit)
}

// Stats aggregates a stage by status and document type in a single grouped query.
func (p *PostgreSQLTransactionRepository) Stats(
	ctx context.Context,
	stage transactionDomain.Stage,
	since time.Time,
) (*transactionDomain.FolderStats, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, document_type, COUNT(*),
				SUM(CASE WHEN created_at >= $2 THEN 1 ELSE 0 END)
			  FROM transactions
			  WHERE stage = $1
			  GROUP BY status, document_type`

	rows, err := querier.QueryContext(ctx, query, string(stage), since)
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
func (p *PostgreSQLTransactionRepository) Partners(ctx context.Context) ([]*transactionDomain.PartnerSummary, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT partner_name, COUNT(*), MAX(modified_at)
			  FROM transactions
			  WHERE stage <> $1
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
func (p *PostgreSQLTransactionRepository) DocumentTypeCounts(ctx context.Context) (map[string]int64, error) {
	querier := database.GetTx(ctx, p.db)

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

func (p *PostgreSQLTransactionRepository) query(
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
		t, err := scanPostgreSQLTransaction(rows)
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
