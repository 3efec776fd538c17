package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/metrics"
)

// Cache is the subset of the cache object repository used for lookups.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
}

// CachedClient serves lookups from cache objects and falls through to the
// wrapped client on a miss.
type CachedClient struct {
	next    Client
	cache   Cache
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient caches lookups of next in cache for ttl.
func NewCachedClient(next Client, cache Cache, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *CachedClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, log: log.Named("dictionary"), metrics: m}
}

func (c *CachedClient) Name() string {
	return c.next.Name()
}

// CacheKey is the cache object key holding the lookup result for word.
func (c *CachedClient) CacheKey(word string) string {
	return "dictionary:" + c.next.Name() + ":" + normalize(word)
}

func (c *CachedClient) Lookup(ctx context.Context, word string) (*LookupResult, error) {
	key := c.CacheKey(word)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var result LookupResult
		if jsonErr := json.Unmarshal(raw, &result); jsonErr == nil {
			c.metrics.CacheLookup("dictionary", true)
			return &result, nil
		}
		c.log.Warn("discarding unreadable cached lookup", zap.String("key", key))
	case !errors.Is(err, crud.ErrNotFound):
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.CacheLookup("dictionary", false)

	result, err := c.next.Lookup(ctx, word)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

// Cached reports whether a result for word is already cached.
func (c *CachedClient) Cached(ctx context.Context, word string) bool {
	_, err := c.cache.Get(ctx, c.CacheKey(word))
	return err == nil
}
