package edi

import (
	"time"

	apperrors "github.com/allisson/edibox/internal/errors"
)

var (
	// ErrNotText indicates the content could not be decoded as text.
	ErrNotText = apperrors.Wrap(apperrors.ErrInvalidInput, "content is not text")

	// ErrUnsupportedFormat indicates the content is not one of the segment-based dialects.
	ErrUnsupportedFormat = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported format")

	// ErrDelimiterConflict indicates a value cannot be rendered without clashing with a delimiter.
	ErrDelimiterConflict = apperrors.Wrap(apperrors.ErrInvalidInput, "value conflicts with delimiters")
)

// Parse decodes raw content, detects its dialect and extracts the known fields.
// Segment level extraction problems are reported in Metadata.ParseErrors; only
// undecodable or non-EDI content returns an error.
func Parse(content []byte) (*Metadata, error) {
	text, ok := DecodeText(content)
	if !ok {
		return nil, ErrNotText
	}
	return ParseString(text)
}

// ParseString is Parse for already decoded content.
func ParseString(text string) (*Metadata, error) {
	switch f := DetectString(text); f {
	case FormatX12:
		return parseX12(text), nil
	case FormatEDIFACT:
		return parseEDIFACT(text), nil
	default:
		return nil, apperrors.Wrapf(ErrUnsupportedFormat, "detected %s", f)
	}
}

// Generator renders Metadata into a minimal interchange.
type Generator struct {
	// Now supplies the timestamp used for missing dates. Defaults to time.Now.
	Now func() time.Time
}

// NewGenerator returns a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// Generate renders md in the requested dialect. Missing envelope fields are
// filled with placeholders; segment counts in the trailers are computed.
func (g *Generator) Generate(md *Metadata, format Format) ([]byte, error) {
	if md == nil {
		md = &Metadata{}
	}
	if format == "" {
		format = md.Format
	}

	now := time.Now()
	if g != nil && g.Now != nil {
		now = g.Now()
	}

	switch format {
	case FormatX12, "":
		out, err := generateX12(md, now)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case FormatEDIFACT:
		return []byte(generateEDIFACT(md, now)), nil
	default:
		return nil, apperrors.Wrapf(ErrUnsupportedFormat, "cannot generate %s", format)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// digitsOr returns v when it is exactly n ASCII digits, def otherwise.
func digitsOr(v string, n int, def string) string {
	if len(v) != n {
		return def
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return def
		}
	}
	return v
}
