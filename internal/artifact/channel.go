package artifact

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/internal/common"
)

// proofPrefix namespaces the proof id inside the PDF /Keywords entry so
// unrelated keyword content never parses as a proof id.
const proofPrefix = "docproof:"

// EmbedKeyword renders the keywords value the generator writes.
func EmbedKeyword(proofID string) string {
	return proofPrefix + proofID
}

// ReadProofID scans artifact bytes for the embedded proof id. It is a
// tolerant reader, not a PDF parser: it locates /Keywords entries in the
// raw bytes and decodes literal, hex, and UTF-16BE string values. Documents
// rewritten by tools that relocate or re-encode the info dictionary in ways
// this scanner does not cover simply fall through to a NoMatch upstream.
func ReadProofID(artifact []byte) (string, error) {
	marker := []byte("/Keywords")
	rest := artifact
	for {
		i := bytes.Index(rest, marker)
		if i < 0 {
			break
		}
		rest = rest[i+len(marker):]

		value, ok := decodeStringObject(rest)
		if !ok {
			continue
		}
		if id, found := strings.CutPrefix(value, proofPrefix); found {
			id = strings.TrimSpace(id)
			if _, err := uuid.Parse(id); err == nil {
				return id, nil
			}
		}
	}
	return "", common.NewAppError("NO_EMBEDDED_ID", "no proof id in document metadata", common.ErrMetadataExtraction)
}

// decodeStringObject decodes the PDF string object that follows a dictionary
// key: either a literal (...) or a hex <...> string.
func decodeStringObject(b []byte) (string, bool) {
	j := 0
	for j < len(b) && (b[j] == ' ' || b[j] == '\r' || b[j] == '\n' || b[j] == '\t') {
		j++
	}
	if j >= len(b) {
		return "", false
	}
	switch b[j] {
	case '(':
		return decodeLiteral(b[j+1:])
	case '<':
		return decodeHex(b[j+1:])
	default:
		return "", false
	}
}

func decodeLiteral(b []byte) (string, bool) {
	var out []byte
	depth := 1
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch c {
		case '\\':
			if i+1 >= len(b) {
				return "", false
			}
			i++
			switch b[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, b[i])
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeUTF16IfBOM(out), true
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return "", false
}

func decodeHex(b []byte) (string, bool) {
	end := bytes.IndexByte(b, '>')
	if end < 0 {
		return "", false
	}
	compact := make([]byte, 0, end)
	for _, c := range b[:end] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			compact = append(compact, c)
		case c == ' ' || c == '\r' || c == '\n' || c == '\t':
		default:
			return "", false
		}
	}
	if len(compact)%2 != 0 {
		compact = append(compact, '0')
	}
	raw, err := hex.DecodeString(string(compact))
	if err != nil {
		return "", false
	}
	return decodeUTF16IfBOM(raw), true
}

// decodeUTF16IfBOM handles the UTF-16BE text string encoding some writers
// use for info dictionary values.
func decodeUTF16IfBOM(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	return string(b)
}
