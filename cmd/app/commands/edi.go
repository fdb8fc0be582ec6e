package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/allisson/edibox/internal/edi"
)

// RunDetect prints the detected format of the input file (or stdin when path is empty).
func RunDetect(reader io.Reader, writer io.Writer, path string, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	data, err := readInput(reader, path)
	if err != nil {
		return err
	}

	detected := edi.Detect(data)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"format":    detected,
			"is_edi":    detected.IsEDI(),
			"extension": detected.Extension(),
		})
	}

	_, _ = fmt.Fprintln(writer, detected)
	return nil
}

// RunParse extracts the metadata of an X12 or EDIFACT interchange.
func RunParse(reader io.Reader, writer io.Writer, path string, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	data, err := readInput(reader, path)
	if err != nil {
		return err
	}

	md, err := edi.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, md)
	}

	outputMetadataText(writer, md)
	return nil
}

// RunValidate checks the structure of the input. expected may be empty to accept any format.
// Returns an error when the content is invalid so the process exits non-zero.
func RunValidate(reader io.Reader, writer io.Writer, path string, expected string, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var expectedFormat edi.Format
	if expected != "" {
		f, ok := edi.ParseFormat(expected)
		if !ok {
			return fmt.Errorf("invalid expected format: %s", expected)
		}
		expectedFormat = f
	}

	data, err := readInput(reader, path)
	if err != nil {
		return err
	}

	result := edi.Validate(data, expectedFormat)

	if format == "json" {
		if err := writeJSON(writer, result); err != nil {
			return err
		}
	} else {
		outputValidationText(writer, result)
	}

	if !result.Valid {
		return fmt.Errorf("validation failed: %d error(s)", len(result.Errors))
	}
	return nil
}

// RunGenerate renders a JSON metadata document into an interchange of the requested dialect.
func RunGenerate(reader io.Reader, writer io.Writer, path string, dialect string) error {
	target, ok := edi.ParseFormat(dialect)
	if !ok {
		return fmt.Errorf("invalid format: %s (valid options: X12, EDIFACT)", dialect)
	}

	data, err := readInput(reader, path)
	if err != nil {
		return err
	}

	var md edi.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return fmt.Errorf("invalid metadata JSON: %w", err)
	}

	out, err := edi.NewGenerator().Generate(&md, target)
	if err != nil {
		return fmt.Errorf("failed to generate document: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(out))
	return nil
}

func outputMetadataText(writer io.Writer, md *edi.Metadata) {
	fields := []struct {
		label string
		value string
	}{
		{"Format", string(md.Format)},
		{"Document Type", md.DocumentType},
		{"Type Code", md.DocumentTypeCode},
		{"Document Number", md.DocumentNumber},
		{"Document Date", md.DocumentDate},
		{"Sender", md.SenderID},
		{"Receiver", md.ReceiverID},
		{"Control Number", md.ControlNumber},
		{"Buyer", md.BuyerName},
		{"Seller", md.SellerName},
		{"Ship To", md.ShipToName},
		{"Partner", md.PartnerName},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		_, _ = fmt.Fprintf(writer, "%-16s %s\n", f.label+":", f.value)
	}
	_, _ = fmt.Fprintf(writer, "%-16s %d\n", "Segments:", len(md.Segments))

	if len(md.ParseErrors) > 0 {
		_, _ = fmt.Fprintf(writer, "\nParse Errors:\n")
		for _, e := range md.ParseErrors {
			_, _ = fmt.Fprintf(writer, "  - %s\n", e)
		}
	}
}

func outputValidationText(writer io.Writer, result edi.ValidationResult) {
	status := "VALID"
	if !result.Valid {
		status = "INVALID"
	}
	_, _ = fmt.Fprintf(writer, "Format: %s\nStatus: %s\n", result.Format, status)

	if len(result.Errors) > 0 {
		_, _ = fmt.Fprintf(writer, "\nErrors:\n  - %s\n", strings.Join(result.Errors, "\n  - "))
	}
	if len(result.Warnings) > 0 {
		_, _ = fmt.Fprintf(writer, "\nWarnings:\n  - %s\n", strings.Join(result.Warnings, "\n  - "))
	}
}
