package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/http/dto"
	"github.com/allisson/edibox/internal/transaction/usecase"
)

func decodeBody(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v))
}

func TestTransactionHandler_CreateHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		created := newTestTransaction(transactionDomain.StageIntake)
		content := "ISA*00~"

		lifecycle.On("Create", mock.Anything, mock.MatchedBy(func(in usecase.CreateInput) bool {
			return in.Stage == transactionDomain.StageIntake && in.PartnerName == "Acme" &&
				string(in.Content) == content
		})).Return(created, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/transactions", dto.CreateTransactionRequest{
			Stage:        "intake",
			PartnerName:  "Acme",
			DocumentType: "850",
			Content:      &content,
		})
		c.Request.Header.Set(ActorHeader, "jdoe")

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.TransactionResponse
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, created.ID.String(), response.ID)
		assert.Equal(t, "Purchase Order", response.DocumentTypeName)

		ctx := lifecycle.Calls[0].Arguments.Get(0).(context.Context)
		assert.Equal(t, "jdoe", transactionDomain.ActorFrom(ctx))
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/transactions", nil)
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_ValidationFailed", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/transactions", dto.CreateTransactionRequest{Stage: "sent"})

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var response map[string]interface{}
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, "validation_error", response["error"])
		assert.NotEmpty(t, response["problems"])
	})

	t.Run("Error_AlreadyExists", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		lifecycle.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict).Once()

		c, w := createTestContext(http.MethodPost, "/v1/transactions", dto.CreateTransactionRequest{
			Stage:        "outbox",
			PartnerName:  "Acme",
			DocumentType: "850",
			Metadata:     &edi.Metadata{BuyerName: "Acme"},
		})

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTransactionHandler_ListHandler(t *testing.T) {
	t.Run("Success_Filters", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		item := newTestTransaction(transactionDomain.StageOutbox)

		lifecycle.On("List", mock.Anything, transactionDomain.TransactionFilter{
			Stage:       transactionDomain.StageOutbox,
			PartnerName: "Acme",
			Query:       "po100",
			Offset:      10,
			Limit:       5,
		}).Return(&usecase.TransactionPage{
			Items:  []*transactionDomain.Transaction{item},
			Total:  11,
			Offset: 10,
			Limit:  5,
		}, nil).Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/transactions?stage=outbox&partner=Acme&q=%20po100%20&offset=10&limit=5",
			nil,
		)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ListTransactionsResponse
		decodeBody(t, w.Body.Bytes(), &response)
		require.Len(t, response.Data, 1)
		assert.Equal(t, int64(11), response.Total)
		assert.Equal(t, 5, response.Limit)
	})

	t.Run("Error_InvalidLimit", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/transactions?limit=500", nil)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidStage", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		lifecycle.On("List", mock.Anything, mock.Anything).
			Return(nil, transactionDomain.ErrInvalidStage).Once()

		c, w := createTestContext(http.MethodGet, "/v1/transactions?stage=archive", nil)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTransactionHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageIntake)
		lifecycle.On("Get", mock.Anything, tx.ID).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/transactions/"+tx.ID.String(), nil)
		withID(c, tx.ID)

		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/transactions/abc", nil)
		c.Params = gin.Params{{Key: "id", Value: "abc"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Get", mock.Anything, id).Return(nil, transactionDomain.ErrTransactionNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/transactions/"+id.String(), nil)
		withID(c, id)

		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response map[string]interface{}
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, "not_found", response["error"])
	})
}

func TestTransactionHandler_UpdateHandler(t *testing.T) {
	t.Run("Success_PartialUpdate", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageOutbox)
		number := "PO100"

		lifecycle.On("Update", mock.Anything, tx.ID, mock.MatchedBy(func(in usecase.UpdateInput) bool {
			return in.DocumentNumber != nil && *in.DocumentNumber == number && in.PartnerName == nil
		})).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodPatch, "/v1/transactions/"+tx.ID.String(),
			dto.UpdateTransactionRequest{DocumentNumber: &number})
		withID(c, tx.ID)

		handler.UpdateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_NotEditable", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Update", mock.Anything, id, mock.Anything).
			Return(nil, transactionDomain.ErrNotEditable).Once()

		c, w := createTestContext(http.MethodPatch, "/v1/transactions/"+id.String(), map[string]string{"filename": "a.edi"})
		withID(c, id)

		handler.UpdateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		var response map[string]interface{}
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, "invalid_state", response["error"])
	})
}

func TestTransactionHandler_DeleteHandler(t *testing.T) {
	t.Run("Success_Soft", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Delete", mock.Anything, id, false).Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/transactions/"+id.String(), nil)
		withID(c, id)

		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNoContent, c.Writer.Status())
		assert.Zero(t, w.Body.Len())
	})

	t.Run("Success_Permanent", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Delete", mock.Anything, id, true).Return(nil).Once()

		c, _ := createTestContext(http.MethodDelete, "/v1/transactions/"+id.String()+"?permanent=true", nil)
		withID(c, id)

		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	})

	t.Run("Error_InvalidPermanentFlag", func(t *testing.T) {
		handler, _ := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())

		c, w := createTestContext(http.MethodDelete, "/v1/transactions/"+id.String()+"?permanent=maybe", nil)
		withID(c, id)

		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionHandler_Transitions(t *testing.T) {
	t.Run("Success_Move", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageAccepted)
		lifecycle.On("Move", mock.Anything, tx.ID, transactionDomain.StageAccepted).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodPost, "/move", dto.MoveTransactionRequest{Stage: "accepted"})
		withID(c, tx.ID)

		handler.MoveHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_MoveSameStage", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Move", mock.Anything, id, transactionDomain.StageIntake).
			Return(nil, transactionDomain.ErrSameStage).Once()

		c, w := createTestContext(http.MethodPost, "/move", dto.MoveTransactionRequest{Stage: "intake"})
		withID(c, id)

		handler.MoveHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Success_Accept", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageAccepted)
		lifecycle.On("Accept", mock.Anything, tx.ID).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodPost, "/accept", nil)
		withID(c, tx.ID)

		handler.AcceptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_SendFailed", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Send", mock.Anything, id).Return(nil, transactionDomain.ErrSendFailed).Once()

		c, w := createTestContext(http.MethodPost, "/send", nil)
		withID(c, id)

		handler.SendHandler(c)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var response map[string]interface{}
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, "transmission_error", response["error"])
	})

	t.Run("Success_Restore", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageIntake)
		lifecycle.On("Restore", mock.Anything, tx.ID).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodPost, "/restore", nil)
		withID(c, tx.ID)

		handler.RestoreHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Success_Acknowledge", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		tx := newTestTransaction(transactionDomain.StageSent)
		lifecycle.On("Acknowledge", mock.Anything, tx.ID, usecase.AckInput{
			Status:  transactionDomain.AckRejected,
			Message: "AK5*R",
		}).Return(tx, nil).Once()

		c, w := createTestContext(http.MethodPost, "/acknowledge",
			dto.AcknowledgeRequest{Status: "rejected", Message: "AK5*R"})
		withID(c, tx.ID)

		handler.AcknowledgeHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_AcknowledgeInvalidStatus", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/acknowledge", dto.AcknowledgeRequest{Status: "maybe"})
		withID(c, uuid.Must(uuid.NewV7()))

		handler.AcknowledgeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTransactionHandler_Reads(t *testing.T) {
	t.Run("Success_Validation", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("ValidateForProcessing", mock.Anything, id).Return([]apperrors.Problem{
			{Field: "document_number", Message: "document number is required"},
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/validation", nil)
		withID(c, id)

		handler.ValidationHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ValidationResponse
		decodeBody(t, w.Body.Bytes(), &response)
		assert.False(t, response.Valid)
		require.Len(t, response.Problems, 1)
	})

	t.Run("Success_AcknowledgmentErrors", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("AcknowledgmentErrors", mock.Anything, id).Return([]transactionDomain.AckProblem{
			{Field: "acknowledgment", Message: "no acknowledgment received yet", Severity: transactionDomain.SeverityInfo},
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/acknowledgment-errors", nil)
		withID(c, id)

		handler.AcknowledgmentErrorsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.AcknowledgmentErrorsResponse
		decodeBody(t, w.Body.Bytes(), &response)
		require.Len(t, response.Data, 1)
		assert.Equal(t, transactionDomain.SeverityInfo, response.Data[0].Severity)
	})

	t.Run("Success_History", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("History", mock.Anything, id).Return([]*transactionDomain.HistoryEntry{
			{
				ID:            uuid.Must(uuid.NewV7()),
				TransactionID: id,
				Action:        transactionDomain.ActionCreated,
				ToStage:       transactionDomain.StageIntake,
				Signature:     []byte{1},
			},
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/history", nil)
		withID(c, id)

		handler.HistoryHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.HistoryResponse
		decodeBody(t, w.Body.Bytes(), &response)
		require.Len(t, response.Data, 1)
		assert.Equal(t, "created", response.Data[0].Action)
		assert.True(t, response.Data[0].Signed)
	})

	t.Run("Success_Raw", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Content", mock.Anything, id).Return(&usecase.ContentResult{
			Content:  []byte("ISA*00~"),
			Size:     7,
			Hash:     "deadbeef",
			Format:   edi.FormatX12,
			Filename: "po.edi",
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/raw", nil)
		withID(c, id)

		handler.RawHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ISA*00~", w.Body.String())
		assert.Equal(t, "application/edi-x12", w.Header().Get("Content-Type"))
		assert.Equal(t, "deadbeef", w.Header().Get("X-Content-Sha256"))
	})

	t.Run("Error_RawIntegrity", func(t *testing.T) {
		handler, lifecycle := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		lifecycle.On("Content", mock.Anything, id).Return(nil, transactionDomain.ErrContentMismatch).Once()

		c, w := createTestContext(http.MethodGet, "/raw", nil)
		withID(c, id)

		handler.RawHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var response map[string]interface{}
		decodeBody(t, w.Body.Bytes(), &response)
		assert.Equal(t, "integrity_error", response["error"])
	})
}
