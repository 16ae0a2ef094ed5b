package rates

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activeCacheKey = "pricing:rates:active"
	bumpChannel    = "pricing.rates.bump"
)

type cachedActive struct {
	Found    bool     `json:"found"`
	Snapshot Snapshot `json:"snapshot"`
}

// Cache keeps the active snapshot in Redis. A nil Cache or client falls
// through to the loader on every call.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Active returns the cached active snapshot or populates it from loader.
func (c *Cache) Active(ctx context.Context, loader func(context.Context) (Snapshot, bool, error)) (Snapshot, bool, error) {
	if loader == nil {
		return Snapshot{}, false, errors.New("rates cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, activeCacheKey).Bytes()
	if err == nil {
		var cached cachedActive
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached.Snapshot, cached.Found, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Redis trouble must not block price quotes.
		return loader(ctx)
	}

	snap, found, err := loader(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}
	raw, err := json.Marshal(cachedActive{Found: found, Snapshot: snap})
	if err != nil {
		return Snapshot{}, false, err
	}
	_ = c.client.Set(ctx, activeCacheKey, raw, c.ttl).Err()
	return snap, found, nil
}

// Invalidate drops the cached snapshot and notifies other instances.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, activeCacheKey).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, time.Now().UTC().Format(time.RFC3339Nano)).Err()
}
