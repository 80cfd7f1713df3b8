package services

import (
	"container/list"
	"sync"
	"time"

	"github.com/riverfold/docgate/internal/models"
)

// CredentialCache is a process-local LRU of credential records keyed by key
// hash. Instead of per-entry TTL timers, every entry is stamped with the
// epoch it was fetched in (unix time divided by the validity period); an
// entry is valid only while the current epoch matches its stamp. All
// requests inside one epoch see identical cache state, and the first
// request after an epoch boundary is guaranteed a fresh store fetch, which
// bounds staleness to one validity period without any sweeper goroutine.
type CredentialCache struct {
	mu       sync.Mutex
	capacity int
	validity time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time
}

type cacheEntry struct {
	hash   string
	record *models.Credential
	epoch  int64
}

// NewCredentialCache creates a cache holding at most capacity entries,
// each valid for the epoch it was inserted in.
func NewCredentialCache(capacity int, validity time.Duration) *CredentialCache {
	if capacity <= 0 {
		capacity = 100
	}
	if validity <= 0 {
		validity = 300 * time.Second
	}
	return &CredentialCache{
		capacity: capacity,
		validity: validity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *CredentialCache) epoch() int64 {
	return c.now().Unix() / int64(c.validity/time.Second)
}

// Get returns the cached record for a key hash. Entries stamped with an
// older epoch are treated as absent and dropped lazily.
func (c *CredentialCache) Get(hash string) (*models.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[hash]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if entry.epoch != c.epoch() {
		c.order.Remove(elem)
		delete(c.entries, hash)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.record, true
}

// Put stores a record under the current epoch, evicting the least recently
// used entry when the cache is full.
func (c *CredentialCache) Put(hash string, record *models.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[hash]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.record = record
		entry.epoch = c.epoch()
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).hash)
		}
	}

	c.entries[hash] = c.order.PushFront(&cacheEntry{
		hash:   hash,
		record: record,
		epoch:  c.epoch(),
	})
}

// InvalidateAll drops every entry. Called after external credential
// mutations (revoke, rotate, limit change); coarse on purpose so a stale
// accept decision can never be served after a mutation.
func (c *CredentialCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of cached entries, stale ones included.
func (c *CredentialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
