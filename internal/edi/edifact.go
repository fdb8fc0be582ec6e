package edi

import (
	"fmt"
	"strings"
	"time"
)

// Delimiters is the EDIFACT service character set, either advertised by a UNA
// block or the defaults.
type Delimiters struct {
	Component  byte
	Element    byte
	Decimal    byte
	Release    byte
	Terminator byte
}

// DefaultDelimiters are used when content carries no UNA block.
var DefaultDelimiters = Delimiters{
	Component:  ':',
	Element:    '+',
	Decimal:    '.',
	Release:    '?',
	Terminator: '\'',
}

var edifactMinElements = map[string]int{
	"UNB": 5,
	"UNH": 3,
	"BGM": 3,
	"DTM": 2,
	"NAD": 3,
}

// readUNA strips a leading UNA block and returns the delimiters it advertises.
func readUNA(content string) (Delimiters, string, error) {
	if !strings.HasPrefix(content, "UNA") {
		return DefaultDelimiters, content, nil
	}
	if len(content) < 9 {
		return DefaultDelimiters, strings.TrimPrefix(content, "UNA"),
			fmt.Errorf("UNA: expected 9 characters, got %d", len(content))
	}
	d := Delimiters{
		Component:  content[3],
		Element:    content[4],
		Decimal:    content[5],
		Release:    content[6],
		Terminator: content[8],
	}
	return d, content[9:], nil
}

// splitEscaped splits s on sep, ignoring separators preceded by the release
// character. Release sequences are kept so nested splits still see them.
func splitEscaped(s string, sep, release byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case release:
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescape(s string, release byte) string {
	if strings.IndexByte(s, release) < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == release && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

type edifactSegment struct {
	tag      string
	elements []string
	d        Delimiters
}

// component returns the unescaped component j of element i, or "" when absent.
func (s edifactSegment) component(i, j int) string {
	if i >= len(s.elements) {
		return ""
	}
	comps := splitEscaped(s.elements[i], s.d.Component, s.d.Release)
	if j >= len(comps) {
		return ""
	}
	return strings.TrimSpace(unescape(comps[j], s.d.Release))
}

func (s edifactSegment) components(i int) []string {
	if i >= len(s.elements) {
		return nil
	}
	comps := splitEscaped(s.elements[i], s.d.Component, s.d.Release)
	for k := range comps {
		comps[k] = unescape(comps[k], s.d.Release)
	}
	return comps
}

func tokenizeEDIFACT(content string) ([]edifactSegment, Delimiters, error) {
	d, body, unaErr := readUNA(strings.TrimSpace(content))

	var segments []edifactSegment
	if unaErr == nil && strings.HasPrefix(strings.TrimSpace(content), "UNA") {
		segments = append(segments, edifactSegment{tag: "UNA", d: d})
	}

	for _, raw := range splitEscaped(body, d.Terminator, d.Release) {
		seg := strings.TrimSpace(raw)
		if seg == "" {
			continue
		}
		elements := splitEscaped(seg, d.Element, d.Release)
		segments = append(segments, edifactSegment{
			tag:      strings.TrimSpace(elements[0]),
			elements: elements,
			d:        d,
		})
	}
	return segments, d, unaErr
}

func parseEDIFACT(content string) *Metadata {
	md := &Metadata{Format: FormatEDIFACT}

	segments, _, err := tokenizeEDIFACT(content)
	if err != nil {
		md.ParseErrors = append(md.ParseErrors, err.Error())
	}

	for _, seg := range segments {
		md.Segments = append(md.Segments, seg.tag)
		if err := extractEDIFACT(md, seg); err != nil {
			md.ParseErrors = append(md.ParseErrors, err.Error())
		}
	}

	md.resolvePartner()
	return md
}

func extractEDIFACT(md *Metadata, seg edifactSegment) error {
	min, ok := edifactMinElements[seg.tag]
	if !ok {
		return nil
	}
	if len(seg.elements) < min {
		return fmt.Errorf("%s: expected at least %d elements, got %d", seg.tag, min, len(seg.elements))
	}

	switch seg.tag {
	case "UNB":
		if syntax := seg.component(1, 0); syntax != "" {
			md.Set("syntax_identifier", syntax)
		}
		md.SenderID = seg.component(2, 0)
		if q := seg.component(2, 1); q != "" {
			md.Set("sender_qualifier", q)
		}
		md.ReceiverID = seg.component(3, 0)
		if q := seg.component(3, 1); q != "" {
			md.Set("receiver_qualifier", q)
		}
		md.InterchangeDate = seg.component(4, 0)
		md.InterchangeTime = seg.component(4, 1)
		md.ControlNumber = seg.component(5, 0)
	case "UNH":
		md.MessageRef = seg.component(1, 0)
		comps := seg.components(2)
		md.DocumentTypeCode = strings.TrimSpace(comps[0])
		md.DocumentType = DocumentTypeName(md.DocumentTypeCode)
		if len(comps) > 1 {
			md.Set("message_version", strings.Join(comps[1:], ":"))
		}
	case "BGM":
		if name := seg.component(1, 0); name != "" {
			md.Set("document_name_code", name)
		}
		md.DocumentNumber = seg.component(2, 0)
	case "DTM":
		if seg.component(1, 0) == "137" {
			md.DocumentDate = seg.component(1, 1)
		}
	case "NAD":
		var name string
		if len(seg.elements) > 3 {
			name = seg.component(3, 0)
		}
		md.setParty(seg.component(1, 0), name, seg.component(2, 0))
	}
	return nil
}

func generateEDIFACT(md *Metadata, now time.Time) string {
	d := DefaultDelimiters
	esc := func(v string) string { return escapeEDIFACT(v, d) }

	msgType := md.DocumentTypeCode
	if mapped, ok := x12ToEDIFACT[msgType]; ok {
		msgType = mapped
	}
	if dt, ok := documentTypes[msgType]; !ok || dt.Format != FormatEDIFACT {
		msgType = "ORDERS"
	}
	nameCode := documentNameCodes[msgType]
	if nameCode == "" {
		nameCode = "220"
	}

	control := orDefault(md.ControlNumber, "1")
	msgRef := orDefault(md.MessageRef, "1")

	unbDate := digitsOr(md.InterchangeDate, 6, now.Format("060102"))
	unbTime := digitsOr(md.InterchangeTime, 4, now.Format("1504"))
	docDate := digitsOr(md.DocumentDate, 8, now.Format("20060102"))

	body := []string{
		fmt.Sprintf("UNH+%s+%s:D:96A:UN", esc(msgRef), msgType),
		fmt.Sprintf("BGM+%s+%s+9", nameCode, esc(md.DocumentNumber)),
		fmt.Sprintf("DTM+137:%s:102", docDate),
	}
	body = append(body, edifactParty("BY", md.BuyerName, md.BuyerID, esc)...)
	body = append(body, edifactParty("SU", md.SellerName, md.SellerID, esc)...)
	body = append(body, edifactParty("DP", md.ShipToName, md.ShipToID, esc)...)
	// UNT counts UNH through UNT inclusive
	body = append(body, fmt.Sprintf("UNT+%d+%s", len(body)+1, esc(msgRef)))

	segments := make([]string, 0, len(body)+2)
	segments = append(segments, fmt.Sprintf("UNB+UNOC:3+%s:14+%s:14+%s:%s+%s",
		esc(orDefault(md.SenderID, "SENDER")), esc(orDefault(md.ReceiverID, "RECEIVER")),
		unbDate, unbTime, esc(control)))
	segments = append(segments, body...)
	segments = append(segments, fmt.Sprintf("UNZ+1+%s", esc(control)))

	var b strings.Builder
	b.WriteString("UNA:+.? '\n")
	for _, s := range segments {
		b.WriteString(s)
		b.WriteByte(d.Terminator)
		b.WriteByte('\n')
	}
	return b.String()
}

func edifactParty(qualifier, name, id string, esc func(string) string) []string {
	if name == "" {
		return nil
	}
	return []string{fmt.Sprintf("NAD+%s+%s::9+%s", qualifier, esc(id), esc(name))}
}

func escapeEDIFACT(v string, d Delimiters) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case d.Component, d.Element, d.Release, d.Terminator:
			b.WriteByte(d.Release)
		}
		b.WriteByte(v[i])
	}
	return b.String()
}
