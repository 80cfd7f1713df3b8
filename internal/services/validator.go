package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/riverfold/docgate/internal/models"
	"github.com/riverfold/docgate/pkg/keygen"
)

// CredentialFinder is the store lookup the validator depends on.
type CredentialFinder interface {
	// FindByHash returns the active credential for a key hash, or nil
	// when no active record matches.
	FindByHash(ctx context.Context, keyHash string) (*models.Credential, error)
}

// DBValidator resolves plaintext keys to credential records through the
// epoch-bucketed cache, falling back to the store on miss.
type DBValidator struct {
	store CredentialFinder
	cache *CredentialCache

	now func() time.Time
}

func NewDBValidator(store CredentialFinder, cache *CredentialCache) *DBValidator {
	return &DBValidator{
		store: store,
		cache: cache,
		now:   time.Now,
	}
}

// Validate hashes the plaintext key, resolves the record (cache first,
// store on miss), and checks expiry against wall-clock time. An expired
// record is rejected on every read, even while it is still cached; a store
// error on the fetch path is a deny (ambiguous authorization state is never
// an accept).
func (v *DBValidator) Validate(ctx context.Context, key string) (bool, *models.Credential) {
	keyHash := keygen.HashKey(key)

	record, ok := v.cache.Get(keyHash)
	if !ok {
		fetched, err := v.store.FindByHash(ctx, keyHash)
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch credential from store")
			return false, nil
		}
		if fetched == nil {
			log.Debug().Msg("API key not found or inactive")
			return false, nil
		}
		v.cache.Put(keyHash, fetched)
		record = fetched
	}

	if record.Expired(v.now()) {
		log.Warn().Str("client", record.ClientName).Msg("API key expired")
		return false, nil
	}

	return true, record
}

// InvalidateAll clears the credential cache. Meant to be called after an
// external actor mutates credential records (revoke, rotate, limit change).
func (v *DBValidator) InvalidateAll() {
	v.cache.InvalidateAll()
	log.Info().Msg("Credential cache cleared")
}
