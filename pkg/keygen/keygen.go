// Package keygen generates and digests API keys. Keys are 32 bytes of
// entropy, URL-safe base64 encoded, matching what the admin tooling issues.
package keygen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// NewKey returns a cryptographically random URL-safe API key (43 chars).
func NewKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashKey returns the hex-encoded SHA-256 digest of a plaintext key.
// Only this digest is ever persisted or compared against the store.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the short non-secret display fragment for a key,
// e.g. "api_abc12", used in listings so operators can tell keys apart.
func Prefix(key string) string {
	if len(key) < 5 {
		return "api_" + key
	}
	return "api_" + key[:5]
}
