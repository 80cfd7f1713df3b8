package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/docgate/internal/models"
)

func testCredential(name string) *models.Credential {
	return &models.Credential{
		ID:         uuid.New(),
		ClientName: name,
		IsActive:   true,
	}
}

func TestCredentialCache_HitWithinEpoch(t *testing.T) {
	c := NewCredentialCache(10, 300*time.Second)

	c.Put("hash-1", testCredential("A"))

	got, ok := c.Get("hash-1")
	require.True(t, ok)
	assert.Equal(t, "A", got.ClientName)
}

func TestCredentialCache_EpochRolloverInvalidates(t *testing.T) {
	c := NewCredentialCache(10, 300*time.Second)
	base := time.Unix(1_700_000_100, 0) // 1_700_000_100 / 300 = epoch start
	require.Zero(t, base.Unix()%300, "base must sit on an epoch boundary")
	now := base
	c.now = func() time.Time { return now }

	c.Put("hash-1", testCredential("A"))

	now = base.Add(299 * time.Second)
	_, ok := c.Get("hash-1")
	assert.True(t, ok, "entry must be valid within its epoch")

	now = base.Add(300 * time.Second)
	_, ok = c.Get("hash-1")
	assert.False(t, ok, "entry must be treated as absent after the epoch rolls")
	assert.Zero(t, c.Len(), "stale entry is dropped lazily on read")
}

func TestCredentialCache_LRUEviction(t *testing.T) {
	c := NewCredentialCache(3, 300*time.Second)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("hash-%d", i), testCredential(fmt.Sprintf("C%d", i)))
	}

	// Touch hash-0 so hash-1 becomes the least recently used.
	_, ok := c.Get("hash-0")
	require.True(t, ok)

	c.Put("hash-3", testCredential("C3"))

	_, ok = c.Get("hash-1")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get("hash-0")
	assert.True(t, ok)
	_, ok = c.Get("hash-3")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestCredentialCache_InvalidateAll(t *testing.T) {
	c := NewCredentialCache(10, 300*time.Second)
	c.Put("hash-1", testCredential("A"))
	c.Put("hash-2", testCredential("B"))

	c.InvalidateAll()

	assert.Zero(t, c.Len())
	_, ok := c.Get("hash-1")
	assert.False(t, ok)
}

func TestCredentialCache_PutRefreshesEpoch(t *testing.T) {
	c := NewCredentialCache(10, 300*time.Second)
	base := time.Unix(1_700_000_100, 0)
	now := base
	c.now = func() time.Time { return now }

	c.Put("hash-1", testCredential("A"))

	// Refill after the rollover stamps the new epoch.
	now = base.Add(300 * time.Second)
	c.Put("hash-1", testCredential("A2"))

	got, ok := c.Get("hash-1")
	require.True(t, ok)
	assert.Equal(t, "A2", got.ClientName)
}
