// Package sha256 provides the digest behind author anonymization.
package sha256

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Hasher implements review.Hasher using SHA-256, or HMAC-SHA-256 when keyed.
// A keyed hasher keeps author tokens from being reversed by hashing a list of
// known display names.
type Hasher struct {
	key []byte
}

// New returns a SHA-256 hasher; a non-empty key switches it to HMAC mode.
func New(key []byte) *Hasher {
	return &Hasher{key: append([]byte(nil), key...)}
}

// Hash returns a lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	var mac hash.Hash
	if len(h.key) > 0 {
		mac = hmac.New(sha256.New, h.key)
	} else {
		mac = sha256.New()
	}
	if _, err := mac.Write(data); err != nil {
		return "", fmt.Errorf("sha256 write: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}
