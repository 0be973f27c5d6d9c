package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rentcal/internal/app/policies"
)

// Cache is a process-local key-value cache.
type Cache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewCache() *Cache {
	return &Cache{items: make(map[string][]byte)}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	if !ok {
		return nil, policies.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]byte(nil), value...)
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *Cache) Keys(ctx context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Cache) Ping(context.Context) error { return nil }

var (
	_ policies.LocalCache = (*Cache)(nil)
	_ policies.Pinger     = (*Cache)(nil)
)
