package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// signedURLCacheTTL is deliberately shorter than SignedURLTTL so a cached URL
// is always still valid when served.
const signedURLCacheTTL = time.Hour

const signedURLKeyPrefix = "signed_url:"

// SignedURLCache caches freshly signed URLs in Redis so listing reads do not
// re-sign every object on every call. A nil cache or nil client disables
// caching; errors degrade to a miss.
type SignedURLCache struct {
	rdb *redis.Client
}

// NewSignedURLCache builds a cache over a Redis client. client may be nil.
func NewSignedURLCache(client *redis.Client) *SignedURLCache {
	return &SignedURLCache{rdb: client}
}

// Get returns a cached signed URL for an object key.
func (c *SignedURLCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, signedURLKeyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a signed URL for an object key. Best-effort.
func (c *SignedURLCache) Set(ctx context.Context, key, url string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Set(ctx, signedURLKeyPrefix+key, url, signedURLCacheTTL).Err()
}
