package edi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Run("Success_ValidX12", func(t *testing.T) {
		result := Validate([]byte(sampleX12), "")
		assert.True(t, result.Valid)
		assert.Equal(t, FormatX12, result.Format)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("Success_ValidEDIFACT", func(t *testing.T) {
		result := Validate([]byte(sampleEDIFACT), FormatEDIFACT)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("Success_X12TrailerWarnings", func(t *testing.T) {
		result := Validate([]byte("ISA*00~GS*PO~ST*850*0001~BEG*00*NE*PO1"), "")
		assert.True(t, result.Valid)
		assert.ElementsMatch(t, []string{
			"content does not end with segment terminator ~",
			"missing SE trailer",
			"missing GE trailer",
			"missing IEA trailer",
		}, result.Warnings)
	})

	t.Run("Success_EDIFACTTrailerWarnings", func(t *testing.T) {
		result := Validate([]byte("UNB+UNOC:3+S:14+R:14+240101:1200+1'UNH+1+ORDERS:D:96A:UN"), "")
		assert.True(t, result.Valid)
		assert.ElementsMatch(t, []string{
			"content does not end with segment terminator '",
			"missing UNT trailer",
			"missing UNZ trailer",
		}, result.Warnings)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		result := Validate([]byte("  \n"), "")
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"content is empty"}, result.Errors)
	})

	t.Run("Error_X12MissingGroupAndTransaction", func(t *testing.T) {
		result := Validate([]byte("ISA*00~IEA*1*1~"), FormatX12)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, "missing GS segment")
		assert.Contains(t, result.Errors, "missing ST segment")
	})

	t.Run("Error_EDIFACTMissingMessageHeader", func(t *testing.T) {
		result := Validate([]byte("UNA:+.? 'UNZ+1+1'"), "")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, "missing UNB segment")
		assert.Contains(t, result.Errors, "missing UNH segment")
	})

	t.Run("Error_UnsupportedFormat", func(t *testing.T) {
		result := Validate([]byte(`{"po":1}`), "")
		assert.False(t, result.Valid)
		assert.Equal(t, FormatJSON, result.Format)
		assert.Equal(t, []string{"format JSON is not a supported EDI dialect"}, result.Errors)
	})

	t.Run("Error_ExpectedFormatMismatch", func(t *testing.T) {
		result := Validate([]byte(sampleX12), FormatEDIFACT)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"expected format EDIFACT, detected X12"}, result.Errors)
	})

	t.Run("Success_GeneratedEDIFACTIsValid", func(t *testing.T) {
		out, err := fixedGenerator().Generate(&Metadata{DocumentNumber: "PO1"}, FormatEDIFACT)
		assert.NoError(t, err)
		result := Validate(out, FormatEDIFACT)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Warnings)
	})
}
