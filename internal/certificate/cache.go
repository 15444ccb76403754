package certificate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/cert-registry/internal/pkg/logger"
	"github.com/ignite/cert-registry/internal/storage"
)

// Cache is a Redis read-through cache in front of an IdentityResolver.
// Issuance bursts for the same identity hit Redis instead of the store
// GSI. Cache failures degrade to the underlying resolver; a cache
// outage never fails an issuance. Identities are never mutated in
// scope, so a TTL is the only invalidation needed.
type Cache struct {
	client *redis.Client
	next   IdentityResolver
	ttl    time.Duration
}

// NewCache wraps a resolver with a Redis cache.
func NewCache(client *redis.Client, next IdentityResolver, ttl time.Duration) *Cache {
	return &Cache{client: client, next: next, ttl: ttl}
}

func cacheKey(identityID string) string {
	return "identity:" + identityID
}

// GetByID returns the cached identity or falls through to the resolver.
// Negative results are not cached: a missing identity must stay a store
// decision.
func (c *Cache) GetByID(ctx context.Context, identityID string) (*storage.Identity, error) {
	data, err := c.client.Get(ctx, cacheKey(identityID)).Bytes()
	if err == nil {
		var id storage.Identity
		if jsonErr := json.Unmarshal(data, &id); jsonErr == nil {
			return &id, nil
		}
		// Corrupt cache entry; drop it and fall through.
		c.client.Del(ctx, cacheKey(identityID))
	} else if err != redis.Nil {
		logger.Debug("identity cache read failed", "identity_id", identityID, "error", err)
	}

	id, err := c.next.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(id); jsonErr == nil {
		if setErr := c.client.Set(ctx, cacheKey(identityID), data, c.ttl).Err(); setErr != nil {
			logger.Debug("identity cache write failed", "identity_id", identityID, "error", setErr)
		}
	}

	return id, nil
}
