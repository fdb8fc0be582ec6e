// Package service provides history signing and signing key management for the lifecycle engine.
package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// MinKeySize is the smallest master key accepted for history signing.
const MinKeySize = 32

var errKeyTooShort = errors.New("history signing key must be at least 32 bytes")

// HistorySigner signs history entries with HMAC-SHA256 using a key derived from a master key.
type HistorySigner struct {
	signingKey []byte
}

// NewHistorySigner derives the signing key from masterKey with HKDF-SHA256. The
// caller may zero masterKey once this returns.
func NewHistorySigner(masterKey []byte) (*HistorySigner, error) {
	if len(masterKey) < MinKeySize {
		return nil, errKeyTooShort
	}

	signingKey, err := deriveSigningKey(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return &HistorySigner{signingKey: signingKey}, nil
}

// deriveSigningKey uses HKDF-SHA256 with a versioned info string.
func deriveSigningKey(masterKey []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte("history-signing-v1"))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(r, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// canonicalize encodes entry as:
// id || transaction_id || action || from_stage || to_stage || actor || details || timestamp.
// Variable fields are length-prefixed and the timestamp is truncated to microseconds,
// the precision kept by both SQL backends.
func canonicalize(entry *transactionDomain.HistoryEntry) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, entry.ID[:]...)
	buf = append(buf, entry.TransactionID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.Action))
	buf = appendLengthPrefixed(buf, []byte(entry.FromStage))
	buf = appendLengthPrefixed(buf, []byte(entry.ToStage))
	buf = appendLengthPrefixed(buf, []byte(entry.Actor))

	details, err := canonicalDetails(entry.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal details: %w", err)
	}
	buf = appendLengthPrefixed(buf, details)

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(entry.Timestamp.UTC().UnixMicro()))
	buf = append(buf, ts...)

	return buf, nil
}

// canonicalDetails renders details the way they read back from storage: nested
// structs become objects with sorted keys and numbers keep their literal form.
func canonicalDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if len(data) > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	return append(buf, data...)
}

// Sign returns the 32-byte HMAC-SHA256 signature of entry.
func (s *HistorySigner) Sign(entry *transactionDomain.HistoryEntry) ([]byte, error) {
	canonical, err := canonicalize(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize history entry: %w", err)
	}

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify returns transactionDomain.ErrSignatureInvalid when the stored signature does not match.
func (s *HistorySigner) Verify(entry *transactionDomain.HistoryEntry) error {
	expected, err := s.Sign(entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(entry.Signature, expected) {
		return transactionDomain.ErrSignatureInvalid
	}
	return nil
}

// Close zeroes the derived signing key. The signer must not be used afterwards.
func (s *HistorySigner) Close() {
	zero(s.signingKey)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
