package edi

import (
	"bytes"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts raw content to a UTF-8 string. The boolean result is false
// when the content does not look like text (it contains NUL bytes after decoding).
//
// Detection order:
//  1. Byte order mark (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Valid UTF-8 is returned as-is
//  3. Heuristic detection via chardet for legacy 8-bit charsets
//  4. Fallback to Windows-1252
func DecodeText(raw []byte) (string, bool) {
	var decoded []byte

	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		decoded = raw[len(bomUTF8):]
	case bytes.HasPrefix(raw, bomUTF16LE):
		decoded = decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), raw)
	case bytes.HasPrefix(raw, bomUTF16BE):
		decoded = decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), raw)
	case utf8.Valid(raw):
		decoded = raw
	default:
		decoded = decodeWith(detectLegacyCharset(raw), raw)
	}

	if decoded == nil || bytes.IndexByte(decoded, 0) >= 0 {
		return "", false
	}
	return string(decoded), true
}

// detectLegacyCharset picks a single-byte decoder for content that is not valid UTF-8.
func detectLegacyCharset(raw []byte) encoding.Encoding {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err == nil {
		switch result.Charset {
		case "ISO-8859-1", "windows-1252":
			return charmap.Windows1252
		case "ISO-8859-2":
			return charmap.ISO8859_2
		case "ISO-8859-9":
			return charmap.ISO8859_9
		case "ISO-8859-15":
			return charmap.ISO8859_15
		}
	}
	return charmap.Windows1252
}

func decodeWith(enc encoding.Encoding, raw []byte) []byte {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil
	}
	return out
}
