// Package sha256 derives archive keys for scraped venue pages.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// Hasher implements outreach.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ObjectPath returns the archive path for a page URL, sharded by the first
// two digest characters.
func (h *Hasher) ObjectPath(prefix, pageURL string) string {
	digest, _ := h.Hash([]byte(pageURL))
	return path.Join(prefix, digest[:2], digest+".html")
}
