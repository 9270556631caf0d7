package index

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"navassist/internal/corpus"
)

// Cache memoizes built indexes by corpus fingerprint. It is the only
// process-wide shared state: the first caller for a fingerprint pays the
// build, concurrent callers wait for that same build, and later callers get
// the cached, read-only index.
type Cache struct {
	builder *Builder
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]*Index
	builds  atomic.Int64
}

// NewCache creates an empty cache that builds with b.
func NewCache(b *Builder) *Cache {
	return &Cache{builder: b, entries: make(map[string]*Index)}
}

// GetOrBuild returns the index for c's fingerprint, building it on first use.
// A failed build is not cached.
func (c *Cache) GetOrBuild(ctx context.Context, corp *corpus.Corpus) (*Index, error) {
	fp := corp.Fingerprint()
	if ix, ok := c.lookup(fp); ok {
		return ix, nil
	}
	v, err, _ := c.group.Do(fp, func() (any, error) {
		if ix, ok := c.lookup(fp); ok {
			return ix, nil
		}
		c.builds.Add(1)
		ix, err := c.builder.Build(ctx, corp)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[fp] = ix
		c.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Invalidate drops the index cached for fingerprint.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
}

// Builds returns how many builds the cache has started.
func (c *Cache) Builds() int64 { return c.builds.Load() }

func (c *Cache) lookup(fp string) (*Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ix, ok := c.entries[fp]
	return ix, ok
}
