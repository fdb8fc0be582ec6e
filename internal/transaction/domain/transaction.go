// Package domain defines the transaction lifecycle model: stages, processing statuses,
// the transaction record and its immutable history entries.
//
// A transaction is a business document exchanged with a trading partner. Its content lives
// in the content store under <stage>/<id>.<ext> and its metadata lives in the transaction
// store; the lifecycle engine keeps both consistent.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/edi"
)

// Stage is the lifecycle folder a transaction currently sits in.
type Stage string

const (
	StageIntake    Stage = "intake"
	StageAccepted  Stage = "accepted"
	StageOutbox    Stage = "outbox"
	StageSent      Stage = "sent"
	StageDiscarded Stage = "discarded"
)

// Stages lists every stage in display order.
var Stages = []Stage{StageIntake, StageAccepted, StageOutbox, StageSent, StageDiscarded}

// Valid reports whether s belongs to the closed set of stages.
func (s Stage) Valid() bool {
	switch s {
	case StageIntake, StageAccepted, StageOutbox, StageSent, StageDiscarded:
		return true
	}
	return false
}

// ParseStage converts s into a Stage or returns ErrInvalidStage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return stage, nil
}

// Status tracks processing progress independently from Stage.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusReady        Status = "ready"
	StatusProcessing   Status = "processing"
	StatusSent         Status = "sent"
	StatusAcknowledged Status = "acknowledged"
	StatusFailed       Status = "failed"
)

// Statuses lists every status.
var Statuses = []Status{StatusDraft, StatusReady, StatusProcessing, StatusSent, StatusAcknowledged, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusProcessing, StatusSent, StatusAcknowledged, StatusFailed:
		return true
	}
	return false
}

// Editable reports whether a caller may set this status directly through an update.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusReady
}

// AckStatus is the trading partner's verdict on a sent transaction.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckRejected AckStatus = "rejected"
)

// Valid reports whether s is a known acknowledgment status.
func (s AckStatus) Valid() bool {
	return s == AckAccepted || s == AckRejected
}

// Transaction is a document record. Only the lifecycle engine mutates it.
type Transaction struct {
	ID             uuid.UUID
	Filename       string
	Stage          Stage
	PartnerName    string
	PartnerID      string
	DocumentType   string
	DocumentNumber string
	// ContentPath is the content store key, <stage>/<id>.<ext>.
	ContentPath string
	ContentSize int64
	// ContentHash is the hex SHA-256 of the content at its last write.
	ContentHash           string
	Status                Status
	Metadata              *edi.Metadata
	AcknowledgmentStatus  AckStatus
	AcknowledgmentMessage string
	CreatedAt             time.Time
	ModifiedAt            time.Time
	AcceptedAt            *time.Time
	SentAt                *time.Time
	AcknowledgedAt        *time.Time
	DiscardedAt           *time.Time
}

// ContentName returns the file name used in the content store for this transaction.
func (t *Transaction) ContentName(format edi.Format) string {
	return t.ID.String() + "." + format.Extension()
}

// DefaultFilename builds <documentType>_<YYYYmmddHHMMSS>.edi.
func DefaultFilename(documentType string, now time.Time) string {
	return fmt.Sprintf("%s_%s.edi", documentType, now.UTC().Format("20060102150405"))
}

// Clone returns a deep copy of t.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.Metadata = t.Metadata.Clone()
	c.AcceptedAt = cloneTime(t.AcceptedAt)
	c.SentAt = cloneTime(t.SentAt)
	c.AcknowledgedAt = cloneTime(t.AcknowledgedAt)
	c.DiscardedAt = cloneTime(t.DiscardedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TransactionFilter narrows a transaction listing. Empty fields are ignored.
type TransactionFilter struct {
	Stage        Stage
	PartnerName  string
	DocumentType string
	// Query matches partner name, document number or filename, case-insensitively.
	Query  string
	Offset int
	Limit  int
}

// PartnerSummary aggregates transactions per partner name.
type PartnerSummary struct {
	PartnerName  string    `json:"partner_name"`
	Count        int64     `json:"count"`
	LastActivity time.Time `json:"last_activity"`
}

// DocumentTypeSummary merges the known document type table with stored counts.
type DocumentTypeSummary struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// FolderStats summarizes one stage.
type FolderStats struct {
	Stage          Stage            `json:"stage"`
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	ByDocumentType map[string]int64 `json:"by_document_type"`
	CreatedToday   int64            `json:"created_today"`
}
