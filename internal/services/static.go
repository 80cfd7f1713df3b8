package services

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/rs/zerolog/log"
)

// StaticValidator checks keys against a fixed set loaded at startup.
// It exists for small deployments (a handful of clients) that don't want a
// database; there is no rate limiting or usage tracking in this mode.
type StaticValidator struct {
	enabled bool
	digests [][sha256.Size]byte
	names   []string
}

// NewStaticValidator builds the validator from configured keys and optional
// key->name labels. If auth is enabled but no keys are configured, the
// validator downgrades itself to disabled rather than rejecting all traffic.
func NewStaticValidator(enabled bool, keys []string, names map[string]string) *StaticValidator {
	if enabled && len(keys) == 0 {
		log.Warn().Msg("AUTH_ENABLED is true but no API keys configured. Authentication will be DISABLED.")
		enabled = false
	}

	v := &StaticValidator{
		enabled: enabled,
		digests: make([][sha256.Size]byte, 0, len(keys)),
		names:   make([]string, 0, len(keys)),
	}
	for _, key := range keys {
		v.digests = append(v.digests, sha256.Sum256([]byte(key)))
		name := names[key]
		if name == "" {
			name = "Unknown"
		}
		v.names = append(v.names, name)
	}
	return v
}

// Enabled reports whether static authentication is active.
func (v *StaticValidator) Enabled() bool {
	return v.enabled
}

// Validate compares the provided key against every configured key in fixed
// time. Comparing SHA-256 digests keeps the comparison length-independent,
// and the loop never short-circuits on a match, so timing reveals only the
// final boolean. Returns the client name for the matched key, or "Unknown"
// if the key is valid but unnamed.
func (v *StaticValidator) Validate(key string) (bool, string) {
	digest := sha256.Sum256([]byte(key))

	matched := 0
	matchIdx := -1
	for i := range v.digests {
		m := subtle.ConstantTimeCompare(digest[:], v.digests[i][:])
		matchIdx = subtle.ConstantTimeSelect(m, i, matchIdx)
		matched |= m
	}

	if matched != 1 {
		return false, ""
	}
	return true, v.names[matchIdx]
}
