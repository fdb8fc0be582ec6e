// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"errors"

	validation "github.com/jellydator/validation"

	"github.com/allisson/edibox/internal/edi"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/usecase"
	customValidation "github.com/allisson/edibox/internal/validation"
)

var errBothContentForms = errors.New("only one of content and content_base64 may be set")

// CreateTransactionRequest contains the fields of a new transaction. Content is either
// raw text (content) or base64 encoded bytes (content_base64); when both are absent
// the content is generated from metadata.
type CreateTransactionRequest struct {
	Stage          string        `json:"stage"`
	Filename       string        `json:"filename"`
	PartnerName    string        `json:"partner_name"`
	PartnerID      string        `json:"partner_id"`
	DocumentType   string        `json:"document_type"`
	DocumentNumber string        `json:"document_number"`
	Metadata       *edi.Metadata `json:"metadata"`
	Content        *string       `json:"content"`
	ContentBase64  string        `json:"content_base64"`
}

// Validate checks if the create transaction request is valid.
func (r *CreateTransactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Stage,
			validation.Required,
			validation.In(string(transactionDomain.StageIntake), string(transactionDomain.StageOutbox)),
		),
		validation.Field(&r.Filename, customValidation.NoWhitespace, customValidation.SafeFilename),
		validation.Field(&r.PartnerName, validation.Required, customValidation.NotBlank),
		validation.Field(&r.DocumentType, validation.Required, customValidation.DocumentTypeCode),
		validation.Field(&r.ContentBase64,
			customValidation.Base64,
			validation.When(r.Content != nil, validation.Empty.Error(errBothContentForms.Error())),
		),
		validation.Field(&r.Metadata,
			validation.When(r.Stage == string(transactionDomain.StageOutbox), validation.Required),
		),
	)
}

// ToInput converts the request into the use case input. Validate must have succeeded.
func (r *CreateTransactionRequest) ToInput() usecase.CreateInput {
	return usecase.CreateInput{
		Stage:          transactionDomain.Stage(r.Stage),
		Filename:       r.Filename,
		PartnerName:    r.PartnerName,
		PartnerID:      r.PartnerID,
		DocumentType:   r.DocumentType,
		DocumentNumber: r.DocumentNumber,
		Metadata:       r.Metadata,
		Content:        contentBytes(r.Content, r.ContentBase64),
	}
}

// UpdateTransactionRequest contains the fields to change. Omitted fields are left untouched.
type UpdateTransactionRequest struct {
	Filename       *string       `json:"filename"`
	PartnerName    *string       `json:"partner_name"`
	PartnerID      *string       `json:"partner_id"`
	DocumentType   *string       `json:"document_type"`
	DocumentNumber *string       `json:"document_number"`
	Status         *string       `json:"status"`
	Metadata       *edi.Metadata `json:"metadata"`
	Content        *string       `json:"content"`
	ContentBase64  *string       `json:"content_base64"`
}

// Validate checks if the update transaction request is valid.
func (r *UpdateTransactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Filename,
			validation.NilOrNotEmpty,
			customValidation.NoWhitespace,
			customValidation.SafeFilename,
		),
		validation.Field(&r.PartnerName, validation.NilOrNotEmpty, customValidation.NotBlank),
		validation.Field(&r.DocumentType, validation.NilOrNotEmpty, customValidation.DocumentTypeCode),
		validation.Field(&r.Status,
			validation.NilOrNotEmpty,
			validation.In(string(transactionDomain.StatusDraft), string(transactionDomain.StatusReady)),
		),
		validation.Field(&r.ContentBase64,
			customValidation.Base64,
			validation.When(r.Content != nil, validation.Nil.Error(errBothContentForms.Error())),
		),
	)
}

// ToInput converts the request into the use case input. Validate must have succeeded.
func (r *UpdateTransactionRequest) ToInput() usecase.UpdateInput {
	input := usecase.UpdateInput{
		Filename:       r.Filename,
		PartnerName:    r.PartnerName,
		PartnerID:      r.PartnerID,
		DocumentType:   r.DocumentType,
		DocumentNumber: r.DocumentNumber,
		Metadata:       r.Metadata,
	}
	if r.Status != nil {
		status := transactionDomain.Status(*r.Status)
		input.Status = &status
	}
	if r.ContentBase64 != nil {
		input.Content = contentBytes(nil, *r.ContentBase64)
	} else {
		input.Content = contentBytes(r.Content, "")
	}
	return input
}

// MoveTransactionRequest names the target stage of a manual move.
type MoveTransactionRequest struct {
	Stage string `json:"stage"`
}

// Validate checks if the move request is valid.
func (r *MoveTransactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Stage, validation.Required, customValidation.Stage),
	)
}

// AcknowledgeRequest carries a trading partner acknowledgment.
type AcknowledgeRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Validate checks if the acknowledgment request is valid.
func (r *AcknowledgeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status,
			validation.Required,
			validation.In(string(transactionDomain.AckAccepted), string(transactionDomain.AckRejected)),
		),
		validation.Field(&r.Message, validation.Length(0, 1024)),
	)
}

// ToInput converts the request into the use case input.
func (r *AcknowledgeRequest) ToInput() usecase.AckInput {
	return usecase.AckInput{
		Status:  transactionDomain.AckStatus(r.Status),
		Message: r.Message,
	}
}

// EDIContentRequest carries content for the detect, parse and validate endpoints.
// Format is the expected format for validate and is ignored elsewhere.
type EDIContentRequest struct {
	Content       *string `json:"content"`
	ContentBase64 string  `json:"content_base64"`
	Format        string  `json:"format"`
}

// Validate checks if the EDI content request is valid.
func (r *EDIContentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ContentBase64,
			customValidation.Base64,
			validation.When(r.Content == nil, validation.Required),
			validation.When(r.Content != nil, validation.Empty.Error(errBothContentForms.Error())),
		),
		validation.Field(&r.Format, customValidation.Format),
	)
}

// Bytes returns the request content. Validate must have succeeded.
func (r *EDIContentRequest) Bytes() []byte {
	data := contentBytes(r.Content, r.ContentBase64)
	if data == nil {
		return []byte{}
	}
	return data
}

// ExpectedFormat returns the requested format, or an empty Format when none was given.
func (r *EDIContentRequest) ExpectedFormat() edi.Format {
	f, _ := edi.ParseFormat(r.Format)
	return f
}

// GenerateRequest asks for an interchange rendered from metadata.
type GenerateRequest struct {
	Metadata *edi.Metadata `json:"metadata"`
	Format   string        `json:"format"`
}

// Validate checks if the generate request is valid.
func (r *GenerateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Metadata, validation.Required),
		validation.Field(&r.Format, validation.By(dialect)),
	)
}

// TargetFormat returns the requested dialect, defaulting to the metadata format.
func (r *GenerateRequest) TargetFormat() edi.Format {
	if f, ok := edi.ParseFormat(r.Format); ok {
		return f
	}
	return r.Metadata.Format
}

func dialect(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if f, ok := edi.ParseFormat(s); !ok || !f.IsEDI() {
		return validation.NewError("validation_dialect", "must be X12 or EDIFACT")
	}
	return nil
}

// contentBytes picks raw text or decoded base64 content. It returns nil when neither is set.
func contentBytes(text *string, encoded string) []byte {
	if text != nil {
		return []byte(*text)
	}
	if encoded == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return data
}
