// Package edi implements format detection, segment parsing, generation and structural
// validation for the two interchange dialects handled by the mailbox: X12 (positional
// element separator, ISA envelope) and EDIFACT (optional UNA delimiter block, UNB envelope).
package edi

import (
	"strings"
)

// Format identifies the wire format of a piece of content.
type Format string

const (
	// FormatX12 is dialect A, an ASC X12 interchange starting with ISA.
	FormatX12 Format = "X12"
	// FormatEDIFACT is dialect B, a UN/EDIFACT interchange starting with UNA or UNB.
	FormatEDIFACT Format = "EDIFACT"
	FormatXML     Format = "XML"
	FormatJSON    Format = "JSON"
	FormatCSV     Format = "CSV"
	FormatUnknown Format = "UNKNOWN"
)

// ParseFormat converts user input (case-insensitive, with the "A"/"B" dialect aliases)
// into a Format. The second return value is false for unrecognized input.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X12", "A":
		return FormatX12, true
	case "EDIFACT", "B":
		return FormatEDIFACT, true
	case "XML":
		return FormatXML, true
	case "JSON":
		return FormatJSON, true
	case "CSV":
		return FormatCSV, true
	case "UNKNOWN":
		return FormatUnknown, true
	default:
		return "", false
	}
}

// IsEDI reports whether f is one of the two segment-based dialects.
func (f Format) IsEDI() bool {
	return f == FormatX12 || f == FormatEDIFACT
}

// Extension returns the file extension used when storing content of this format.
func (f Format) Extension() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "edi"
	}
}

// Detect classifies raw content. Non-text input and empty input are FormatUnknown.
func Detect(content []byte) Format {
	text, ok := DecodeText(content)
	if !ok {
		return FormatUnknown
	}
	return DetectString(text)
}

// DetectString classifies already decoded content. The first matching rule wins.
func DetectString(content string) Format {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return FormatUnknown
	case strings.HasPrefix(trimmed, "ISA"):
		return FormatX12
	case strings.HasPrefix(trimmed, "UNB"), strings.HasPrefix(trimmed, "UNA"):
		return FormatEDIFACT
	case strings.HasPrefix(trimmed, "<"):
		// also covers the <?xml declaration
		return FormatXML
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return FormatJSON
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) > 1 && strings.Contains(lines[0], ",") {
		return FormatCSV
	}

	return FormatUnknown
}
