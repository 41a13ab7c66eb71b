// Package auth hashes and checks the API bearer key.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt cost used for new hashes.
const Cost = 12

// HashKey hashes a plaintext key with bcrypt.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), Cost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// CheckKey compares a plaintext key against a bcrypt hash.
func CheckKey(key, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

// GenerateKey produces a random key (32 bytes, base64url-encoded,
// 43 characters).
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Verifier checks keys against one hash. The last accepted key is
// remembered so bcrypt runs once per distinct key.
type Verifier struct {
	hash string

	mu       sync.Mutex
	accepted string
}

func NewVerifier(hash string) *Verifier {
	return &Verifier{hash: hash}
}

// Enabled reports whether a hash is configured.
func (v *Verifier) Enabled() bool { return v.hash != "" }

// Verify reports whether key matches the hash.
func (v *Verifier) Verify(key string) bool {
	if key == "" || v.hash == "" {
		return false
	}
	v.mu.Lock()
	cached := v.accepted
	v.mu.Unlock()
	if cached != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cached)) == 1 {
		return true
	}
	if CheckKey(key, v.hash) != nil {
		return false
	}
	v.mu.Lock()
	v.accepted = key
	v.mu.Unlock()
	return true
}
