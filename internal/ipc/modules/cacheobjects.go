package modules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrlokans/lingua/internal/database/cacheobjects"
	"github.com/mrlokans/lingua/internal/ipc"
)

type KeyRequest struct {
	Key string `json:"key" validate:"required,max=512"`
}

type CacheSetRequest struct {
	Key   string          `json:"key" validate:"required,max=512"`
	Value json.RawMessage `json:"value" validate:"required"`
	TTL   *int64          `json:"ttl,omitempty" validate:"omitempty,gte=0"` // Seconds; omitted uses the default
}

// CacheObjects is the key/value cache module.
type CacheObjects struct {
	repo       *cacheobjects.Repository
	defaultTTL time.Duration
}

// NewCacheObjects uses defaultTTL when a set call omits ttl.
func NewCacheObjects(repo *cacheobjects.Repository, defaultTTL time.Duration) *CacheObjects {
	return &CacheObjects{repo: repo, defaultTTL: defaultTTL}
}

func (m *CacheObjects) Name() string {
	return "cacheObjects"
}

func (m *CacheObjects) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "get",
			Description: "Read a cached value; expired entries are reported as not found",
			Endpoint: ipc.Typed(func(ctx context.Context, req KeyRequest) (json.RawMessage, error) {
				return m.repo.Get(ctx, req.Key)
			}),
		},
		{
			Method:      "set",
			Description: "Store a value with a ttl in seconds, 0 keeps it until deleted",
			Endpoint: ipc.Typed(func(ctx context.Context, req CacheSetRequest) (ipc.NoArgs, error) {
				ttl := m.defaultTTL
				if req.TTL != nil {
					ttl = time.Duration(*req.TTL) * time.Second
				}
				return ipc.NoArgs{}, m.repo.Set(ctx, req.Key, req.Value, ttl)
			}),
		},
		{
			Method:      "delete",
			Description: "Remove a cached value",
			Endpoint: ipc.Typed(func(ctx context.Context, req KeyRequest) (ipc.NoArgs, error) {
				return ipc.NoArgs{}, m.repo.Delete(ctx, req.Key)
			}),
		},
	}
}
