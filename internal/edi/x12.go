package edi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/allisson/edibox/internal/errors"
)

const x12ControlPlaceholder = "000000001"

// minimum element count (tag included) per recognized X12 segment
var x12MinElements = map[string]int{
	"ISA": 16,
	"GS":  8,
	"ST":  2,
	"BEG": 4,
	"N1":  3,
}

func parseX12(content string) *Metadata {
	md := &Metadata{Format: FormatX12}

	content = strings.TrimSpace(content)
	if len(content) < 4 {
		md.ParseErrors = append(md.ParseErrors, "content too short to carry an element separator")
		return md
	}

	sep := string(content[3])
	terminator := "\n"
	if strings.Contains(content, "~") {
		terminator = "~"
	}

	for _, raw := range strings.Split(content, terminator) {
		segment := strings.TrimSpace(raw)
		if segment == "" {
			continue
		}
		elements := strings.Split(segment, sep)
		tag := strings.TrimSpace(elements[0])
		md.Segments = append(md.Segments, tag)

		if err := extractX12(md, tag, elements); err != nil {
			md.ParseErrors = append(md.ParseErrors, err.Error())
		}
	}

	md.resolvePartner()
	return md
}

func extractX12(md *Metadata, tag string, el []string) error {
	min, ok := x12MinElements[tag]
	if !ok {
		return nil
	}
	if len(el) < min {
		return fmt.Errorf("%s: expected at least %d elements, got %d", tag, min, len(el))
	}

	switch tag {
	case "ISA":
		md.SenderID = strings.TrimSpace(el[6])
		md.ReceiverID = strings.TrimSpace(el[8])
		md.InterchangeDate = strings.TrimSpace(el[9])
		md.InterchangeTime = strings.TrimSpace(el[10])
		md.ControlNumber = strings.TrimSpace(el[13])
	case "GS":
		md.FunctionalID = strings.TrimSpace(el[1])
		md.SenderCode = strings.TrimSpace(el[2])
		md.ReceiverCode = strings.TrimSpace(el[3])
		md.GroupDate = strings.TrimSpace(el[4])
		md.GroupTime = strings.TrimSpace(el[5])
	case "ST":
		md.DocumentTypeCode = strings.TrimSpace(el[1])
		md.DocumentType = DocumentTypeName(md.DocumentTypeCode)
		if len(el) > 2 {
			md.MessageRef = strings.TrimSpace(el[2])
		}
	case "BEG":
		md.DocumentNumber = strings.TrimSpace(el[3])
		if len(el) > 5 && strings.TrimSpace(el[5]) != "" {
			md.DocumentDate = strings.TrimSpace(el[5])
		} else if len(el) > 4 {
			md.DocumentDate = strings.TrimSpace(el[4])
		}
	case "N1":
		var id string
		if len(el) > 4 {
			id = strings.TrimSpace(el[4])
		}
		md.setParty(strings.TrimSpace(el[1]), strings.TrimSpace(el[2]), id)
	}
	return nil
}

// x12Separators are the element separators tried in order when generating. The
// first one absent from every rendered value wins.
var x12Separators = []string{"*", "|", "^", "!", "+", ":", "@", "#", "$", "%", "&", "="}

const x12Terminator = "~"

func generateX12(md *Metadata, now time.Time) (string, error) {
	sender := orDefault(md.SenderID, "SENDER")
	receiver := orDefault(md.ReceiverID, "RECEIVER")
	senderCode := orDefault(md.SenderCode, sender)
	receiverCode := orDefault(md.ReceiverCode, receiver)

	code := orDefault(md.DocumentTypeCode, "850")
	if mapped, ok := edifactToX12[code]; ok {
		code = mapped
	}
	functionalID := orDefault(md.FunctionalID, functionalIDs[code])
	functionalID = orDefault(functionalID, "ZZ")

	control := x12Control(md.ControlNumber)
	groupControl := strings.TrimLeft(control, "0")
	if groupControl == "" {
		groupControl = "1"
	}
	stControl := orDefault(md.MessageRef, "0001")

	sep, err := x12Separator(
		sender, receiver, senderCode, receiverCode, code, functionalID, stControl, md.DocumentNumber,
		md.BuyerName, md.BuyerID, md.SellerName, md.SellerID, md.ShipToName, md.ShipToID,
	)
	if err != nil {
		return "", err
	}
	join := func(elements ...string) string {
		return strings.Join(elements, sep)
	}

	isaDate := digitsOr(md.InterchangeDate, 6, now.Format("060102"))
	isaTime := digitsOr(md.InterchangeTime, 4, now.Format("1504"))
	gsDate := digitsOr(md.GroupDate, 8, now.Format("20060102"))
	gsTime := digitsOr(md.GroupTime, 4, now.Format("1504"))
	docDate := digitsOr(md.DocumentDate, 8, now.Format("20060102"))

	body := []string{
		join("ST", code, stControl),
		join("BEG", "00", "NE", md.DocumentNumber, "", docDate),
	}
	body = append(body, x12Party(join, "BY", md.BuyerName, md.BuyerID)...)
	body = append(body, x12Party(join, "SE", md.SellerName, md.SellerID)...)
	body = append(body, x12Party(join, "ST", md.ShipToName, md.ShipToID)...)
	// SE01 counts ST through SE inclusive
	body = append(body, join("SE", strconv.Itoa(len(body)+1), stControl))

	segments := make([]string, 0, len(body)+4)
	segments = append(segments,
		join("ISA", "00", "          ", "00", "          ",
			"ZZ", fmt.Sprintf("%-15s", sender), "ZZ", fmt.Sprintf("%-15s", receiver),
			isaDate, isaTime, "U", "00401", control, "0", "P", ">"),
		join("GS", functionalID, senderCode, receiverCode, gsDate, gsTime, groupControl, "X", "004010"),
	)
	segments = append(segments, body...)
	segments = append(segments,
		join("GE", "1", groupControl),
		join("IEA", "1", control),
	)

	return strings.Join(segments, x12Terminator+"\n") + x12Terminator + "\n", nil
}

// x12Separator picks the first separator not present in any value. Values carrying
// the segment terminator cannot be rendered at all.
func x12Separator(values ...string) (string, error) {
	for _, v := range values {
		if strings.Contains(v, x12Terminator) {
			return "", apperrors.Wrapf(ErrDelimiterConflict, "value %q contains the segment terminator", v)
		}
	}
	for _, sep := range x12Separators {
		clash := false
		for _, v := range values {
			if strings.Contains(v, sep) {
				clash = true
				break
			}
		}
		if !clash {
			return sep, nil
		}
	}
	return "", apperrors.Wrap(ErrDelimiterConflict, "no free element separator")
}

func x12Party(join func(...string) string, qualifier, name, id string) []string {
	if name == "" {
		return nil
	}
	if id != "" {
		return []string{join("N1", qualifier, name, "92", id)}
	}
	return []string{join("N1", qualifier, name)}
}

// x12Control returns a nine digit interchange control number.
func x12Control(v string) string {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil || n == 0 || n > 999999999 {
		return x12ControlPlaceholder
	}
	return fmt.Sprintf("%09d", n)
}
