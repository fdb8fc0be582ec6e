package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/edibox/internal/edi"
	"github.com/allisson/edibox/internal/httputil"
	"github.com/allisson/edibox/internal/transaction/http/dto"
	customValidation "github.com/allisson/edibox/internal/validation"
)

// EDIHandler exposes format detection, parsing, generation and structural validation.
// None of these endpoints touch stored transactions.
type EDIHandler struct {
	generator *edi.Generator
	logger    *slog.Logger
}

// NewEDIHandler creates a new EDI tooling handler.
func NewEDIHandler(generator *edi.Generator, logger *slog.Logger) *EDIHandler {
	if generator == nil {
		generator = edi.NewGenerator()
	}
	return &EDIHandler{generator: generator, logger: logger}
}

// DetectHandler classifies content.
// POST /v1/edi/detect - Returns 200 OK.
func (h *EDIHandler) DetectHandler(c *gin.Context) {
	req, ok := h.bindContent(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.DetectResponse{Format: edi.Detect(req.Bytes())})
}

// ParseHandler extracts metadata from an X12 or EDIFACT interchange.
// POST /v1/edi/parse - Returns 200 OK, 422 for non-EDI content.
func (h *EDIHandler) ParseHandler(c *gin.Context) {
	req, ok := h.bindContent(c)
	if !ok {
		return
	}

	md, err := edi.Parse(req.Bytes())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ParseResponse{Format: md.Format, Metadata: md})
}

// ValidateHandler runs the structural checks, optionally against an expected format.
// POST /v1/edi/validate - Returns 200 OK; the result carries valid=false on failure.
func (h *EDIHandler) ValidateHandler(c *gin.Context) {
	req, ok := h.bindContent(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, edi.Validate(req.Bytes(), req.ExpectedFormat()))
}

// GenerateHandler renders metadata into a minimal interchange.
// POST /v1/edi/generate - Returns 200 OK.
func (h *EDIHandler) GenerateHandler(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	format := req.TargetFormat()
	if format == "" {
		format = edi.FormatX12
	}
	content, err := h.generator.Generate(req.Metadata, format)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{Format: format, Content: string(content)})
}

func (h *EDIHandler) bindContent(c *gin.Context) (*dto.EDIContentRequest, bool) {
	var req dto.EDIContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}
	return &req, true
}
