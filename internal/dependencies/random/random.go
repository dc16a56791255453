package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Random mints unguessable tokens; mocked in tests for stable handles
type Random interface {
	// Token returns prefix followed by 128 random bits, base64url encoded
	Token(prefix string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token returns an unguessable token with the given prefix
func (r *CryptoRandom) Token(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
