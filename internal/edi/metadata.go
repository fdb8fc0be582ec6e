package edi

import (
	"sort"
)

// Metadata is the typed field set extracted from (or rendered into) an interchange.
// Dialect specific values without a dedicated field live in Extras.
type Metadata struct {
	Format           Format            `json:"format,omitempty"`
	SenderID         string            `json:"sender_id,omitempty"`
	ReceiverID       string            `json:"receiver_id,omitempty"`
	InterchangeDate  string            `json:"interchange_date,omitempty"`
	InterchangeTime  string            `json:"interchange_time,omitempty"`
	ControlNumber    string            `json:"control_number,omitempty"`
	FunctionalID     string            `json:"functional_id,omitempty"`
	SenderCode       string            `json:"sender_code,omitempty"`
	ReceiverCode     string            `json:"receiver_code,omitempty"`
	GroupDate        string            `json:"group_date,omitempty"`
	GroupTime        string            `json:"group_time,omitempty"`
	DocumentTypeCode string            `json:"document_type_code,omitempty"`
	DocumentType     string            `json:"document_type,omitempty"`
	MessageRef       string            `json:"message_ref,omitempty"`
	DocumentNumber   string            `json:"document_number,omitempty"`
	DocumentDate     string            `json:"document_date,omitempty"`
	BuyerName        string            `json:"buyer_name,omitempty"`
	BuyerID          string            `json:"buyer_id,omitempty"`
	SellerName       string            `json:"seller_name,omitempty"`
	SellerID         string            `json:"seller_id,omitempty"`
	ShipToName       string            `json:"ship_to_name,omitempty"`
	ShipToID         string            `json:"ship_to_id,omitempty"`
	PartnerName      string            `json:"partner_name,omitempty"`
	Segments         []string          `json:"segments,omitempty"`
	ParseErrors      []string          `json:"parse_errors,omitempty"`
	Extras           map[string]string `json:"extras,omitempty"`
}

// fieldPtr maps the known keys to their backing field.
func (m *Metadata) fieldPtr(key string) *string {
	switch key {
	case "sender_id":
		return &m.SenderID
	case "receiver_id":
		return &m.ReceiverID
	case "interchange_date":
		return &m.InterchangeDate
	case "interchange_time":
		return &m.InterchangeTime
	case "control_number":
		return &m.ControlNumber
	case "functional_id":
		return &m.FunctionalID
	case "sender_code":
		return &m.SenderCode
	case "receiver_code":
		return &m.ReceiverCode
	case "group_date":
		return &m.GroupDate
	case "group_time":
		return &m.GroupTime
	case "document_type_code":
		return &m.DocumentTypeCode
	case "document_type":
		return &m.DocumentType
	case "message_ref":
		return &m.MessageRef
	case "document_number":
		return &m.DocumentNumber
	case "document_date":
		return &m.DocumentDate
	case "buyer_name":
		return &m.BuyerName
	case "buyer_id":
		return &m.BuyerID
	case "seller_name":
		return &m.SellerName
	case "seller_id":
		return &m.SellerID
	case "ship_to_name":
		return &m.ShipToName
	case "ship_to_id":
		return &m.ShipToID
	case "partner_name":
		return &m.PartnerName
	}
	return nil
}

// Get returns the value stored under key, looking at known fields first and Extras second.
func (m *Metadata) Get(key string) (string, bool) {
	if key == "format" {
		return string(m.Format), m.Format != ""
	}
	if p := m.fieldPtr(key); p != nil {
		return *p, *p != ""
	}
	v, ok := m.Extras[key]
	return v, ok
}

// Set stores value under key. Unknown keys go to Extras.
func (m *Metadata) Set(key, value string) {
	if key == "format" {
		if f, ok := ParseFormat(value); ok {
			m.Format = f
		}
		return
	}
	if p := m.fieldPtr(key); p != nil {
		*p = value
		return
	}
	if m.Extras == nil {
		m.Extras = make(map[string]string)
	}
	m.Extras[key] = value
}

// ExtraKeys returns the Extras keys in sorted order.
func (m *Metadata) ExtraKeys() []string {
	keys := make([]string, 0, len(m.Extras))
	for k := range m.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Segments != nil {
		c.Segments = append([]string(nil), m.Segments...)
	}
	if m.ParseErrors != nil {
		c.ParseErrors = append([]string(nil), m.ParseErrors...)
	}
	if m.Extras != nil {
		c.Extras = make(map[string]string, len(m.Extras))
		for k, v := range m.Extras {
			c.Extras[k] = v
		}
	}
	return &c
}

// resolvePartner applies the partner name priority: buyer, seller, sender id.
func (m *Metadata) resolvePartner() {
	switch {
	case m.BuyerName != "":
		m.PartnerName = m.BuyerName
	case m.SellerName != "":
		m.PartnerName = m.SellerName
	default:
		m.PartnerName = m.SenderID
	}
}

func (m *Metadata) setParty(qualifier, name, id string) {
	switch qualifier {
	case "BY":
		m.BuyerName, m.BuyerID = name, id
	case "SE", "SU":
		m.SellerName, m.SellerID = name, id
	case "ST", "DP":
		m.ShipToName, m.ShipToID = name, id
	}
}
