// Package repository implements transaction and history persistence for PostgreSQL,
// MySQL and an in-process store.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

const transactionColumns = `id, filename, stage, partner_name, partner_id, document_type, document_number,
	content_path, content_size, content_hash, status, metadata, acknowledgment_status, acknowledgment_message,
	created_at, modified_at, accepted_at, sent_at, acknowledged_at, discarded_at`

const historyColumns = `id, transaction_id, action, from_stage, to_stage, actor, details, signature, created_at`

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

// likePattern escapes LIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// filterClause builds the WHERE clause and its arguments for a transaction filter.
func filterClause(f transactionDomain.TransactionFilter, ph placeholder) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if f.Stage != "" {
		conds = append(conds, "stage = "+next(string(f.Stage)))
	}
	if f.PartnerName != "" {
		conds = append(conds, "partner_name = "+next(f.PartnerName))
	}
	if f.DocumentType != "" {
		conds = append(conds, "document_type = "+next(f.DocumentType))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := likePattern(q)
		conds = append(conds, fmt.Sprintf(
			"(LOWER(partner_name) LIKE %s OR LOWER(document_number) LIKE %s OR LOWER(filename) LIKE %s)",
			next(pattern), next(pattern), next(pattern),
		))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func marshalMetadata(md *edi.Metadata) ([]byte, error) {
	if md == nil {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal transaction metadata")
	}
	return data, nil
}

func unmarshalMetadata(data []byte) (*edi.Metadata, error) {
	if data == nil {
		return nil, nil
	}
	var md edi.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction metadata")
	}
	return &md, nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal history details")
	}
	return data, nil
}

func unmarshalDetails(data []byte) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}
	var details map[string]any
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal history details")
	}
	return details, nil
}

// transactionRow holds the nullable columns shared by both SQL dialects.
type transactionRow struct {
	stage, status               string
	partnerID, documentNumber   sql.NullString
	ackStatus, ackMessage       sql.NullString
	metadata                    []byte
	acceptedAt, sentAt          sql.NullTime
	acknowledgedAt, discardedAt sql.NullTime
}

func (r *transactionRow) apply(t *transactionDomain.Transaction) error {
	md, err := unmarshalMetadata(r.metadata)
	if err != nil {
		return err
	}
	t.Stage = transactionDomain.Stage(r.stage)
	t.Status = transactionDomain.Status(r.status)
	t.PartnerID = r.partnerID.String
	t.DocumentNumber = r.documentNumber.String
	t.AcknowledgmentStatus = transactionDomain.AckStatus(r.ackStatus.String)
	t.AcknowledgmentMessage = r.ackMessage.String
	t.Metadata = md
	t.CreatedAt = t.CreatedAt.UTC()
	t.ModifiedAt = t.ModifiedAt.UTC()
	t.AcceptedAt = timePtr(r.acceptedAt)
	t.SentAt = timePtr(r.sentAt)
	t.AcknowledgedAt = timePtr(r.acknowledgedAt)
	t.DiscardedAt = timePtr(r.discardedAt)
	return nil
}

// historyRow holds the nullable history columns shared by both SQL dialects.
type historyRow struct {
	action             string
	fromStage, toStage sql.NullString
	actor              sql.NullString
	details            []byte
	signature          []byte
}

func (r *historyRow) apply(h *transactionDomain.HistoryEntry) error {
	details, err := unmarshalDetails(r.details)
	if err != nil {
		return err
	}
	h.Action = transactionDomain.Action(r.action)
	h.FromStage = transactionDomain.Stage(r.fromStage.String)
	h.ToStage = transactionDomain.Stage(r.toStage.String)
	h.Actor = r.actor.String
	h.Details = details
	h.Signature = r.signature
	h.Timestamp = h.Timestamp.UTC()
	return nil
}

// foldStats accumulates one grouped stats row into stats.
func foldStats(stats *transactionDomain.FolderStats, status, documentType string, count, today int64) {
	stats.Total += count
	stats.ByStatus[status] += count
	stats.ByDocumentType[documentType] += count
	stats.CreatedToday += today
}

func newFolderStats(stage transactionDomain.Stage) *transactionDomain.FolderStats {
	return &transactionDomain.FolderStats{
		Stage:          stage,
		ByStatus:       make(map[string]int64),
		ByDocumentType: make(map[string]int64),
	}
}
