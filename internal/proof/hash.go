package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns the lowercase hex SHA-256 of the exact artifact bytes.
// Any byte-level change to the artifact changes this value, which is what
// makes exact-match verification meaningful.
func ContentHash(artifact []byte) string {
	sum := sha256.Sum256(artifact)
	return hex.EncodeToString(sum[:])
}

// NormalizeHash lowercases and trims a user-supplied hash so lookups are
// case-insensitive. Returns "" for input that cannot be a SHA-256 hex digest.
func NormalizeHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != sha256.Size*2 {
		return ""
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ""
		}
	}
	return s
}
