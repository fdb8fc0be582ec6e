package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	usecaseMocks "github.com/allisson/edibox/internal/transaction/usecase/mocks"
)

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

// setupTestHandler creates a transaction handler with a mocked lifecycle use case.
func setupTestHandler(t *testing.T) (*TransactionHandler, *usecaseMocks.MockLifecycleUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	lifecycle := &usecaseMocks.MockLifecycleUseCase{}
	t.Cleanup(func() { lifecycle.AssertExpectations(t) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewTransactionHandler(lifecycle, logger), lifecycle
}

func newTestTransaction(stage transactionDomain.Stage) *transactionDomain.Transaction {
	now := time.Now().UTC()
	id := uuid.Must(uuid.NewV7())
	return &transactionDomain.Transaction{
		ID:           id,
		Filename:     "850_20240115093000.edi",
		Stage:        stage,
		Status:       transactionDomain.StatusDraft,
		PartnerName:  "Acme",
		DocumentType: "850",
		ContentPath:  string(stage) + "/" + id.String() + ".edi",
		ContentSize:  12,
		ContentHash:  "abc",
		CreatedAt:    now,
		ModifiedAt:   now,
	}
}

func withID(c *gin.Context, id uuid.UUID) {
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
}
