package auth

import (
	"context"
	"sync"
	"time"
)

// CachedPrincipal is a Principal plus the time it was read from the backend.
type CachedPrincipal struct {
	Principal Principal `json:"principal"`
	CachedAt  time.Time `json:"cached_at"`
}

func (c CachedPrincipal) Age(now time.Time) time.Duration {
	return now.Sub(c.CachedAt)
}

// PrincipalCache caches principals keyed by subject id. Written only by the
// PrincipalLoader, read by the Guard; staleness is tolerated by design so no
// transactional guarantees are required.
type PrincipalCache interface {
	Get(ctx context.Context, subjectID string) (CachedPrincipal, bool, error)
	Set(ctx context.Context, cached CachedPrincipal) error
	Delete(ctx context.Context, subjectID string) error
}

type memoryCache struct {
	mutex sync.RWMutex
	table map[string]CachedPrincipal
}

var _ PrincipalCache = (*memoryCache)(nil)

// NewMemoryCache returns an in-process PrincipalCache.
func NewMemoryCache() PrincipalCache {
	return &memoryCache{table: make(map[string]CachedPrincipal)}
}

func (c *memoryCache) Get(_ context.Context, subjectID string) (CachedPrincipal, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	cached, ok := c.table[subjectID]
	return cached, ok, nil
}

func (c *memoryCache) Set(_ context.Context, cached CachedPrincipal) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.table[cached.Principal.SubjectID] = cached
	return nil
}

func (c *memoryCache) Delete(_ context.Context, subjectID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.table, subjectID)
	return nil
}
