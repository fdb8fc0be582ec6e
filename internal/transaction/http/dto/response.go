package dto

import (
	"time"

	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/usecase"
)

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                    string        `json:"id"`
	Filename              string        `json:"filename"`
	Stage                 string        `json:"stage"`
	Status                string        `json:"status"`
	PartnerName           string        `json:"partner_name"`
	PartnerID             string        `json:"partner_id,omitempty"`
	DocumentType          string        `json:"document_type"`
	DocumentTypeName      string        `json:"document_type_name"`
	DocumentNumber        string        `json:"document_number,omitempty"`
	ContentPath           string        `json:"content_path"`
	ContentSize           int64         `json:"content_size"`
	ContentHash           string        `json:"content_hash"`
	Metadata              *edi.Metadata `json:"metadata,omitempty"`
	AcknowledgmentStatus  string        `json:"acknowledgment_status,omitempty"`
	AcknowledgmentMessage string        `json:"acknowledgment_message,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	ModifiedAt            time.Time     `json:"modified_at"`
	AcceptedAt            *time.Time    `json:"accepted_at,omitempty"`
	SentAt                *time.Time    `json:"sent_at,omitempty"`
	AcknowledgedAt        *time.Time    `json:"acknowledged_at,omitempty"`
	DiscardedAt           *time.Time    `json:"discarded_at,omitempty"`
}

// MapTransactionToResponse converts a domain transaction to an API response.
func MapTransactionToResponse(t *transactionDomain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                    t.ID.String(),
		Filename:              t.Filename,
		Stage:                 string(t.Stage),
		Status:                string(t.Status),
		PartnerName:           t.PartnerName,
		PartnerID:             t.PartnerID,
		DocumentType:          t.DocumentType,
		DocumentTypeName:      edi.DocumentTypeName(t.DocumentType),
		DocumentNumber:        t.DocumentNumber,
		ContentPath:           t.ContentPath,
		ContentSize:           t.ContentSize,
		ContentHash:           t.ContentHash,
		Metadata:              t.Metadata,
		AcknowledgmentStatus:  string(t.AcknowledgmentStatus),
		AcknowledgmentMessage: t.AcknowledgmentMessage,
		CreatedAt:             t.CreatedAt,
		ModifiedAt:            t.ModifiedAt,
		AcceptedAt:            t.AcceptedAt,
		SentAt:                t.SentAt,
		AcknowledgedAt:        t.AcknowledgedAt,
		DiscardedAt:           t.DiscardedAt,
	}
}

// ListTransactionsResponse represents a paginated list of transactions.
type ListTransactionsResponse struct {
	Data   []TransactionResponse `json:"data"`
	Total  int64                 `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

// MapPageToListResponse converts a transaction page to a list response.
func MapPageToListResponse(page *usecase.TransactionPage) ListTransactionsResponse {
	data := make([]TransactionResponse, 0, len(page.Items))
	for _, t := range page.Items {
		data = append(data, MapTransactionToResponse(t))
	}
	return ListTransactionsResponse{
		Data:   data,
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}
}

// HistoryEntryResponse represents one history entry in API responses.
type HistoryEntryResponse struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	Action        string         `json:"action"`
	FromStage     string         `json:"from_stage,omitempty"`
	ToStage       string         `json:"to_stage,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Actor         string         `json:"actor,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Signed        bool           `json:"signed"`
}

// HistoryResponse lists the history of one transaction, oldest first.
type HistoryResponse struct {
	Data []HistoryEntryResponse `json:"data"`
}

// MapHistoryToResponse converts domain history entries to an API response.
func MapHistoryToResponse(entries []*transactionDomain.HistoryEntry) HistoryResponse {
	data := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, HistoryEntryResponse{
			ID:            e.ID.String(),
			TransactionID: e.TransactionID.String(),
			Action:        string(e.Action),
			FromStage:     string(e.FromStage),
			ToStage:       string(e.ToStage),
			Timestamp:     e.Timestamp,
			Actor:         e.Actor,
			Details:       e.Details,
			Signed:        e.IsSigned(),
		})
	}
	return HistoryResponse{Data: data}
}

// ValidationResponse reports whether a transaction is ready to be processed.
type ValidationResponse struct {
	Valid    bool                `json:"valid"`
	Problems []apperrors.Problem `json:"problems"`
}

// MapProblemsToValidationResponse builds a ValidationResponse from problems.
func MapProblemsToValidationResponse(problems []apperrors.Problem) ValidationResponse {
	if problems == nil {
		problems = []apperrors.Problem{}
	}
	return ValidationResponse{Valid: len(problems) == 0, Problems: problems}
}

// AcknowledgmentErrorsResponse lists acknowledgment problems of a transaction.
type AcknowledgmentErrorsResponse struct {
	Data []transactionDomain.AckProblem `json:"data"`
}

// MapAckProblemsToResponse builds an AcknowledgmentErrorsResponse.
func MapAckProblemsToResponse(problems []transactionDomain.AckProblem) AcknowledgmentErrorsResponse {
	if problems == nil {
		problems = []transactionDomain.AckProblem{}
	}
	return AcknowledgmentErrorsResponse{Data: problems}
}

// FolderStatsListResponse lists the stats of every stage in lifecycle order.
type FolderStatsListResponse struct {
	Data []*transactionDomain.FolderStats `json:"data"`
}

// PartnersResponse lists partner summaries.
type PartnersResponse struct {
	Data []*transactionDomain.PartnerSummary `json:"data"`
}

// DocumentTypesResponse lists document type summaries.
type DocumentTypesResponse struct {
	Data []*transactionDomain.DocumentTypeSummary `json:"data"`
}

// DetectResponse reports the detected content format.
type DetectResponse struct {
	Format edi.Format `json:"format"`
}

// ParseResponse carries the metadata extracted from an interchange.
type ParseResponse struct {
	Format   edi.Format    `json:"format"`
	Metadata *edi.Metadata `json:"metadata"`
}

// GenerateResponse carries a generated interchange.
type GenerateResponse struct {
	Format  edi.Format `json:"format"`
	Content string     `json:"content"`
}
