package domain

import (
	"strings"

	apperrors "github.com/allisson/edibox/internal/errors"
)

// ContentState describes what the content store holds for a transaction.
type ContentState int

const (
	ContentPresent ContentState = iota
	ContentMissing
	ContentEmpty
)

// Severity of an acknowledgment problem.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AckProblem is one entry reported by AcknowledgmentProblems.
type AckProblem struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ProcessingProblems lists what keeps t from being processed. Outgoing stages
// (outbox, sent) additionally need a document number and buyer/seller metadata.
func ProcessingProblems(t *Transaction, content ContentState) []apperrors.Problem {
	problems := make([]apperrors.Problem, 0)
	add := func(field, message string) {
		problems = append(problems, apperrors.Problem{Field: field, Message: message})
	}

	if blank(t.PartnerName) {
		add("partner_name", "partner name is required")
	}
	if blank(t.DocumentType) {
		add("document_type", "document type is required")
	}

	switch content {
	case ContentMissing:
		add("content", "content is missing")
	case ContentEmpty:
		add("content", "content is empty")
	}

	if t.Stage != StageOutbox && t.Stage != StageSent {
		return problems
	}

	if blank(t.DocumentNumber) {
		add("document_number", "document number is required for outgoing transactions")
	}
	if t.Metadata == nil {
		add("metadata", "metadata is required")
		return problems
	}
	if blank(t.Metadata.BuyerName) {
		add("metadata.buyer_name", "buyer name is required")
	}
	if blank(t.Metadata.SellerName) {
		add("metadata.seller_name", "seller name is required")
	}
	return problems
}

// AcknowledgmentProblems reports what blocks or is pending acknowledgment for t.
// Only sent and accepted transactions can report anything.
func AcknowledgmentProblems(t *Transaction, content ContentState) []AckProblem {
	problems := make([]AckProblem, 0)

	switch t.Stage {
	case StageSent:
		switch t.AcknowledgmentStatus {
		case "":
			problems = append(problems, AckProblem{
				Field:    "acknowledgment_status",
				Message:  "no acknowledgment received yet",
				Severity: SeverityInfo,
			})
		case AckRejected:
			message := t.AcknowledgmentMessage
			if blank(message) {
				message = "transaction was rejected by trading partner"
			}
			problems = append(problems, AckProblem{
				Field:    "acknowledgment_status",
				Message:  message,
				Severity: SeverityError,
			})
		}
	case StageAccepted:
		if t.Status == StatusFailed {
			problems = append(problems, AckProblem{
				Field:    "status",
				Message:  "transaction processing failed",
				Severity: SeverityError,
			})
		}
		for _, p := range ProcessingProblems(t, content) {
			problems = append(problems, AckProblem{Field: p.Field, Message: p.Message, Severity: SeverityError})
		}
	}

	return problems
}
