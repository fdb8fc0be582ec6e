package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/edi"
	"github.com/allisson/edibox/internal/httputil"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/http/dto"
	"github.com/allisson/edibox/internal/transaction/usecase"
	customValidation "github.com/allisson/edibox/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction lifecycle operations.
type TransactionHandler struct {
	lifecycle usecase.LifecycleUseCase
	logger    *slog.Logger
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(lifecycle usecase.LifecycleUseCase, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// CreateHandler creates a transaction in intake or outbox.
// POST /v1/transactions - Returns 201 Created.
func (h *TransactionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	t, err := h.lifecycle.Create(requestContext(c), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTransactionToResponse(t))
}

// ListHandler lists transactions, newest first.
// GET /v1/transactions?stage=&partner=&document_type=&q=&offset=&limit= - Returns 200 OK.
func (h *TransactionHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	page, err := h.lifecycle.List(c.Request.Context(), transactionDomain.TransactionFilter{
		Stage:        transactionDomain.Stage(c.Query("stage")),
		PartnerName:  c.Query("partner"),
		DocumentType: c.Query("document_type"),
		Query:        strings.TrimSpace(c.Query("q")),
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPageToListResponse(page))
}

// GetHandler returns one transaction.
// GET /v1/transactions/:id - Returns 200 OK.
func (h *TransactionHandler) GetHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	t, err := h.lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(t))
}

// UpdateHandler edits an intake or outbox transaction.
// PATCH /v1/transactions/:id - Returns 200 OK.
func (h *TransactionHandler) UpdateHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	t, err := h.lifecycle.Update(requestContext(c), id, req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(t))
}

// DeleteHandler discards a transaction, or removes it when permanent=true.
// DELETE /v1/transactions/:id?permanent=true - Returns 204 No Content.
func (h *TransactionHandler) DeleteHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	permanent, err := strconv.ParseBool(c.DefaultQuery("permanent", "false"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.lifecycle.Delete(requestContext(c), id, permanent); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// MoveHandler relocates a transaction to another stage.
// POST /v1/transactions/:id/move - Returns 200 OK.
func (h *TransactionHandler) MoveHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.MoveTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	t, err := h.lifecycle.Move(requestContext(c), id, transactionDomain.Stage(req.Stage))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(t))
}

// AcceptHandler moves a valid intake transaction to accepted.
// POST /v1/transactions/:id/accept - Returns 200 OK.
func (h *TransactionHandler) AcceptHandler(c *gin.Context) {
	h.transition(c, h.lifecycle.Accept)
}

// SendHandler transmits an outbox transaction.
// POST /v1/transactions/:id/send - Returns 200 OK, or 502 when transmission fails.
func (h *TransactionHandler) SendHandler(c *gin.Context) {
	h.transition(c, h.lifecycle.Send)
}

// RestoreHandler returns a discarded transaction to its previous stage.
// POST /v1/transactions/:id/restore - Returns 200 OK.
func (h *TransactionHandler) RestoreHandler(c *gin.Context) {
	h.transition(c, h.lifecycle.Restore)
}

// AcknowledgeHandler records a trading partner acknowledgment for a sent transaction.
// POST /v1/transactions/:id/acknowledge - Returns 200 OK.
func (h *TransactionHandler) AcknowledgeHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	t, err := h.lifecycle.Acknowledge(requestContext(c), id, req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(t))
}

// ValidationHandler reports the problems that keep a transaction from being processed.
// GET /v1/transactions/:id/validation - Returns 200 OK.
func (h *TransactionHandler) ValidationHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	problems, err := h.lifecycle.ValidateForProcessing(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapProblemsToValidationResponse(problems))
}

// AcknowledgmentErrorsHandler lists acknowledgment problems.
// GET /v1/transactions/:id/acknowledgment-errors - Returns 200 OK.
func (h *TransactionHandler) AcknowledgmentErrorsHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	problems, err := h.lifecycle.AcknowledgmentErrors(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAckProblemsToResponse(problems))
}

// HistoryHandler returns the history of a transaction, oldest first.
// GET /v1/transactions/:id/history - Returns 200 OK.
func (h *TransactionHandler) HistoryHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entries, err := h.lifecycle.History(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHistoryToResponse(entries))
}

// RawHandler streams the stored content after verifying it against the recorded hash.
// GET /v1/transactions/:id/raw - Returns 200 OK with the content bytes.
func (h *TransactionHandler) RawHandler(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	result, err := h.lifecycle.Content(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("X-Content-Sha256", result.Hash)
	c.Header("X-Content-Format", string(result.Format))
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(result.Filename))
	c.Data(http.StatusOK, contentType(result.Format), result.Content)
}

func (h *TransactionHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, id uuid.UUID) (*transactionDomain.Transaction, error),
) {
	id, err := parseID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	t, err := op(requestContext(c), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToResponse(t))
}

func contentType(format edi.Format) string {
	switch format {
	case edi.FormatX12:
		return "application/edi-x12"
	case edi.FormatEDIFACT:
		return "application/edifact"
	case edi.FormatXML:
		return "application/xml"
	case edi.FormatJSON:
		return "application/json"
	case edi.FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
