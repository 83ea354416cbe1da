package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgcache "StrikeGate/pkg/cache"
)

// BytesCache stores rendered API responses with a TTL. Handlers use it to
// absorb dashboard polling without re-querying the stores.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memEntry struct {
	b   []byte
	exp time.Time
}

// MemoryBytes is the in-process BytesCache for single-instance deploys.
type MemoryBytes struct {
	mu sync.RWMutex
	m  map[string]memEntry
}

func NewMemoryBytes() *MemoryBytes {
	return &MemoryBytes{m: make(map[string]memEntry)}
}

func (c *MemoryBytes) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *MemoryBytes) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.mu.Lock()
	c.m[key] = memEntry{b: cp, exp: exp}
	c.mu.Unlock()
	return nil
}

// SharedBytes backs BytesCache with the shared cache service, so replicas
// serve each other's rendered responses.
type SharedBytes struct {
	svc pkgcache.Service
}

func NewSharedBytes(svc pkgcache.Service) *SharedBytes {
	return &SharedBytes{svc: svc}
}

func (c *SharedBytes) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	var s string
	err := c.svc.Get(ctx, key, &s)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (c *SharedBytes) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.svc.Set(ctx, key, string(value), ttl)
}
