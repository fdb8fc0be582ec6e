package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

func columnNames(columns string) []string {
	parts := strings.Split(columns, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func transactionValues(tx *transactionDomain.Transaction, id driver.Value) []driver.Value {
	return []driver.Value{
		id, tx.Filename, string(tx.Stage), tx.PartnerName, nil, tx.DocumentType, tx.DocumentNumber,
		tx.ContentPath, tx.ContentSize, tx.ContentHash, string(tx.Status),
		[]byte(`{"format":"X12","buyer_name":"Acme"}`), nil, nil,
		tx.CreatedAt, tx.ModifiedAt, tx.CreatedAt, nil, nil, nil,
	}
}

func TestPostgreSQLTransactionRepository_Save(t *testing.T) {
	t.Run("Success_Upsert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WithArgs(anyArgs(20)...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLTransactionRepository(db)
		err = repo.Save(context.Background(), newTestTransaction(transactionDomain.StageIntake, "Acme", "850"))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_ExecFails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WillReturnError(assert.AnError)

		repo := NewPostgreSQLTransactionRepository(db)
		err = repo.Save(context.Background(), newTestTransaction(transactionDomain.StageIntake, "Acme", "850"))

		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to save transaction")
	})
}

func TestPostgreSQLTransactionRepository_FindByID(t *testing.T) {
	t.Run("Success_ScansNullableColumns", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		tx := newTestTransaction(transactionDomain.StageAccepted, "Acme", "850")
		rows := sqlmock.NewRows(columnNames(transactionColumns)).
			AddRow(transactionValues(tx, tx.ID.String())...)
		mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE id = $1")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(rows)

		repo := NewPostgreSQLTransactionRepository(db)
		found, err := repo.FindByID(context.Background(), tx.ID)

		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.ID)
		assert.Equal(t, transactionDomain.StageAccepted, found.Stage)
		assert.Empty(t, found.PartnerID)
		assert.Equal(t, "Acme", found.Metadata.BuyerName)
		require.NotNil(t, found.AcceptedAt)
		assert.True(t, tx.CreatedAt.Equal(*found.AcceptedAt))
		assert.Nil(t, found.SentAt)
		assert.Empty(t, found.AcknowledgmentStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows(columnNames(transactionColumns)))

		repo := NewPostgreSQLTransactionRepository(db)
		_, err = repo.FindByID(context.Background(), newTestTransaction(transactionDomain.StageIntake, "a", "b").ID)

		assert.ErrorIs(t, err, transactionDomain.ErrTransactionNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLTransactionRepository_Delete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLTransactionRepository(db)
		err = repo.Delete(context.Background(), newTestTransaction(transactionDomain.StageIntake, "a", "b").ID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLTransactionRepository(db)
		err = repo.Delete(context.Background(), newTestTransaction(transactionDomain.StageIntake, "a", "b").ID)

		assert.ErrorIs(t, err, transactionDomain.ErrTransactionNotFound)
	})
}

func TestPostgreSQLTransactionRepository_List(t *testing.T) {
	t.Run("Success_FilterAndPagination", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		tx := newTestTransaction(transactionDomain.StageOutbox, "Acme", "850")
		rows := sqlmock.NewRows(columnNames(transactionColumns)).
			AddRow(transactionValues(tx, tx.ID.String())...)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE stage = $1 AND partner_name = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
			WithArgs("outbox", "Acme", int64(50), int64(0)).
			WillReturnRows(rows)

		repo := NewPostgreSQLTransactionRepository(db)
		list, err := repo.List(context.Background(), transactionDomain.TransactionFilter{
			Stage:       transactionDomain.StageOutbox,
			PartnerName: "Acme",
			Limit:       50,
		})

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, tx.ID, list[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_Empty", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM transactions ORDER BY created_at DESC")).
			WillReturnRows(sqlmock.NewRows(columnNames(transactionColumns)))

		repo := NewPostgreSQLTransactionRepository(db)
		list, err := repo.List(context.Background(), transactionDomain.TransactionFilter{Limit: 10})

		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("Error_QueryFails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).WillReturnError(assert.AnError)

		repo := NewPostgreSQLTransactionRepository(db)
		_, err = repo.List(context.Background(), transactionDomain.TransactionFilter{Limit: 10})

		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestPostgreSQLTransactionRepository_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions WHERE document_type = $1")).
		WithArgs("810").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	repo := NewPostgreSQLTransactionRepository(db)
	count, err := repo.Count(context.Background(), transactionDomain.TransactionFilter{DocumentType: "810"})

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTransactionRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	since := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"status", "document_type", "count", "today"}).
		AddRow("draft", "850", int64(3), int64(1)).
		AddRow("ready", "810", int64(2), int64(2))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status, document_type")).
		WithArgs("intake", since).
		WillReturnRows(rows)

	repo := NewPostgreSQLTransactionRepository(db)
	stats, err := repo.Stats(context.Background(), transactionDomain.StageIntake, since)

	require.NoError(t, err)
	assert.Equal(t, transactionDomain.StageIntake, stats.Stage)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.ByStatus["draft"])
	assert.Equal(t, int64(2), stats.ByDocumentType["810"])
	assert.Equal(t, int64(3), stats.CreatedToday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTransactionRepository_Partners(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	last := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"partner_name", "count", "last"}).
		AddRow("Acme", int64(2), last).
		AddRow("Globex", int64(1), last)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY partner_name")).
		WithArgs("discarded").
		WillReturnRows(rows)

	repo := NewPostgreSQLTransactionRepository(db)
	partners, err := repo.Partners(context.Background())

	require.NoError(t, err)
	require.Len(t, partners, 2)
	assert.Equal(t, "Acme", partners[0].PartnerName)
	assert.Equal(t, int64(2), partners[0].Count)
	assert.True(t, last.Equal(partners[1].LastActivity))
}

func TestPostgreSQLTransactionRepository_DocumentTypeCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"document_type", "count"}).
		AddRow("850", int64(4)).
		AddRow("ORDERS", int64(1))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY document_type")).WillReturnRows(rows)

	repo := NewPostgreSQLTransactionRepository(db)
	counts, err := repo.DocumentTypeCounts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"850": 4, "ORDERS": 1}, counts)
}

func TestPostgreSQLTransactionRepository_FindModifiedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	before := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE modified_at < $1")).
		WithArgs(before, "", "processing", int64(100)).
		WillReturnRows(sqlmock.NewRows(columnNames(transactionColumns)))

	repo := NewPostgreSQLTransactionRepository(db)
	list, err := repo.FindModifiedBefore(context.Background(), "", transactionDomain.StatusProcessing, before, 100)

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
