package edi

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of a structural check.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Format   Format   `json:"format"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate performs structural checks on content. When expected is not empty the
// detected format must match it.
func Validate(content []byte, expected Format) ValidationResult {
	result := ValidationResult{Format: FormatUnknown, Errors: []string{}, Warnings: []string{}}

	text, ok := DecodeText(content)
	if !ok {
		result.errorf("content is not text")
		return result
	}
	text = strings.TrimSpace(text)
	if text == "" {
		result.errorf("content is empty")
		return result
	}

	result.Format = DetectString(text)
	if expected != "" && expected != result.Format {
		result.errorf("expected format %s, detected %s", expected, result.Format)
	}

	switch result.Format {
	case FormatX12:
		validateX12(text, &result)
	case FormatEDIFACT:
		validateEDIFACT(text, &result)
	default:
		result.errorf("format %s is not a supported EDI dialect", result.Format)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateX12(text string, r *ValidationResult) {
	if !strings.HasPrefix(text, "ISA") {
		r.errorf("content must start with ISA")
	}
	if !strings.HasSuffix(text, "~") {
		r.warnf("content does not end with segment terminator ~")
	}

	tags := tagSet(parseX12(text).Segments)
	for _, tag := range []string{"GS", "ST"} {
		if !tags[tag] {
			r.errorf("missing %s segment", tag)
		}
	}
	for _, tag := range []string{"SE", "GE", "IEA"} {
		if !tags[tag] {
			r.warnf("missing %s trailer", tag)
		}
	}
}

func validateEDIFACT(text string, r *ValidationResult) {
	if !strings.HasPrefix(text, "UNA") && !strings.HasPrefix(text, "UNB") {
		r.errorf("content must start with UNA or UNB")
	}

	d, _, _ := readUNA(text)
	if text[len(text)-1] != d.Terminator {
		r.warnf("content does not end with segment terminator %c", d.Terminator)
	}

	tags := tagSet(parseEDIFACT(text).Segments)
	for _, tag := range []string{"UNB", "UNH"} {
		if !tags[tag] {
			r.errorf("missing %s segment", tag)
		}
	}
	for _, tag := range []string{"UNT", "UNZ"} {
		if !tags[tag] {
			r.warnf("missing %s trailer", tag)
		}
	}
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}
