// Package apikey verifies admin API keys against a bcrypt hash.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const cost = 12

var ErrNotConfigured = errors.New("admin api key hash not configured")

// Hash hashes a key using bcrypt
func Hash(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	return string(bytes), err
}

// Verifier checks presented keys against one bcrypt hash. The digest of the
// last accepted key is remembered so bcrypt runs once per distinct key.
type Verifier struct {
	hash []byte

	mu       sync.RWMutex
	accepted [sha256.Size]byte
	hasKey   bool
}

func NewVerifier(hash string) (*Verifier, error) {
	if hash == "" {
		return nil, ErrNotConfigured
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &Verifier{hash: []byte(hash)}, nil
}

// Verify reports whether key matches the configured hash. A nil Verifier
// rejects every key.
func (v *Verifier) Verify(key string) bool {
	if v == nil || key == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))

	v.mu.RLock()
	hit := v.hasKey && subtle.ConstantTimeCompare(digest[:], v.accepted[:]) == 1
	v.mu.RUnlock()
	if hit {
		return true
	}

	if bcrypt.CompareHashAndPassword(v.hash, []byte(key)) != nil {
		return false
	}

	v.mu.Lock()
	v.accepted = digest
	v.hasKey = true
	v.mu.Unlock()
	return true
}
