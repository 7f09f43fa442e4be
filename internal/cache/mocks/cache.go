package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache is an in-process cache.Cache that round-trips values through JSON
// the way the Redis cache does.
type Cache struct {
	mu   sync.Mutex
	data map[string][]byte

	GetErr error
	SetErr error

	// DeleteBounded records whether the last Delete carried a deadline.
	DeleteBounded bool
}

func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

func (c *Cache) Get(_ context.Context, key string, value any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.GetErr != nil {
		return false, c.GetErr
	}

	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}

	return true, json.Unmarshal(raw, value)
}

func (c *Cache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SetErr != nil {
		return c.SetErr
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.data[key] = raw

	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, c.DeleteBounded = ctx.Deadline()

	for _, key := range keys {
		delete(c.data, key)
	}

	return nil
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.data[key]

	return ok
}

func (c *Cache) Close() error {
	return nil
}
