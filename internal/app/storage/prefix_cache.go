package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PrefixCache remembers which content hashes already have output under the tenant prefix.
// It is refreshed from a delimiter listing of the output area when a lookup misses and
// the last refresh is older than the TTL.
type PrefixCache struct {
	store  Store
	root   string
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
	hashes map[string]struct{}
	loaded time.Time
}

func NewPrefixCache(store Store, tenantPrefix string, ttl time.Duration) *PrefixCache {
	return &PrefixCache{
		store:  store,
		root:   strings.TrimSuffix(tenantPrefix, "/") + "/",
		ttl:    ttl,
		now:    time.Now,
		hashes: map[string]struct{}{},
	}
}

// Refresh replaces the cached set with a fresh listing.
func (c *PrefixCache) Refresh(ctx context.Context) error {
	page, err := ListAll(ctx, c.store, AreaOutput, ListOptions{Prefix: c.root, Delimiter: "/"}).Unwrap()
	if err != nil {
		return err
	}

	hashes := make(map[string]struct{}, len(page.Prefixes))
	for _, p := range page.Prefixes {
		hash := strings.TrimSuffix(strings.TrimPrefix(p, c.root), "/")
		if hash != "" {
			hashes[hash] = struct{}{}
		}
	}

	c.mu.Lock()
	c.hashes = hashes
	c.loaded = c.now()
	c.mu.Unlock()
	return nil
}

// Has reports whether output exists for hash, refreshing a stale cache on a miss.
func (c *PrefixCache) Has(ctx context.Context, hash string) (bool, error) {
	c.mu.RLock()
	_, ok := c.hashes[hash]
	stale := c.now().Sub(c.loaded) >= c.ttl
	c.mu.RUnlock()
	if ok || !stale {
		return ok, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok = c.hashes[hash]
	return ok, nil
}

func (c *PrefixCache) Add(hash string) {
	c.mu.Lock()
	c.hashes[hash] = struct{}{}
	c.mu.Unlock()
}

func (c *PrefixCache) Delete(hash string) {
	c.mu.Lock()
	delete(c.hashes, hash)
	c.mu.Unlock()
}
