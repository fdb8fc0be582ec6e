package edi

import (
	"fmt"
	"sort"
)

// DocumentType is an entry of the known document type table.
type DocumentType struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Format Format `json:"format"`
}

var documentTypes = map[string]DocumentType{
	"850":    {Code: "850", Name: "Purchase Order", Format: FormatX12},
	"810":    {Code: "810", Name: "Invoice", Format: FormatX12},
	"856":    {Code: "856", Name: "Advance Ship Notice", Format: FormatX12},
	"997":    {Code: "997", Name: "Functional Acknowledgment", Format: FormatX12},
	"855":    {Code: "855", Name: "Purchase Order Acknowledgment", Format: FormatX12},
	"860":    {Code: "860", Name: "Purchase Order Change", Format: FormatX12},
	"ORDERS": {Code: "ORDERS", Name: "Purchase Order (EDIFACT)", Format: FormatEDIFACT},
	"INVOIC": {Code: "INVOIC", Name: "Invoice (EDIFACT)", Format: FormatEDIFACT},
	"DESADV": {Code: "DESADV", Name: "Despatch Advice (EDIFACT)", Format: FormatEDIFACT},
	"CONTRL": {Code: "CONTRL", Name: "Control (EDIFACT)", Format: FormatEDIFACT},
}

// X12 functional identifier codes used in GS01.
var functionalIDs = map[string]string{
	"850": "PO",
	"810": "IN",
	"856": "SH",
	"997": "FA",
	"855": "PR",
	"860": "PC",
}

// EDIFACT BGM document name codes.
var documentNameCodes = map[string]string{
	"ORDERS": "220",
	"INVOIC": "380",
	"DESADV": "351",
}

// equivalents between the two dialects, used when generating across formats.
var (
	x12ToEDIFACT = map[string]string{"850": "ORDERS", "810": "INVOIC", "856": "DESADV", "997": "CONTRL"}
	edifactToX12 = map[string]string{"ORDERS": "850", "INVOIC": "810", "DESADV": "856", "CONTRL": "997"}
)

// DocumentTypeName returns the display name for a document type code,
// or "Unknown (<code>)" when the code is not in the table.
func DocumentTypeName(code string) string {
	if dt, ok := documentTypes[code]; ok {
		return dt.Name
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

// LookupDocumentType returns the table entry for code.
func LookupDocumentType(code string) (DocumentType, bool) {
	dt, ok := documentTypes[code]
	return dt, ok
}

// DocumentTypes returns the known table ordered by format then code.
func DocumentTypes() []DocumentType {
	types := make([]DocumentType, 0, len(documentTypes))
	for _, dt := range documentTypes {
		types = append(types, dt)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Format != types[j].Format {
			return types[i].Format > types[j].Format
		}
		return types[i].Code < types[j].Code
	})
	return types
}
