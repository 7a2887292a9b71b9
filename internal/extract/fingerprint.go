package extract

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint derives the cache key for a set of page images and a template.
// Inputs are length-framed so boundary shifts cannot collide; any change to
// any image byte, to image order, or to the template id yields a different
// fingerprint. The digest is cryptographic because the same primitive backs
// the artifact tamper-evidence path.
func Fingerprint(images [][]byte, templateID string) string {
	h := sha256.New()
	var frame [8]byte
	for _, img := range images {
		binary.BigEndian.PutUint64(frame[:], uint64(len(img)))
		h.Write(frame[:])
		h.Write(img)
	}
	binary.BigEndian.PutUint64(frame[:], uint64(len(templateID)))
	h.Write(frame[:])
	h.Write([]byte(templateID))
	return hex.EncodeToString(h.Sum(nil))
}
