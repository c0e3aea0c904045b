package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/permission"
)

// redisCache is a shared Cache backed by Redis, for multi-instance
// deployments where every instance must observe invalidations.
//
// Layout: one JSON value per user plus reverse-index sets from role and
// tenant keys to the dependent user keys. Index sets carry a slightly longer
// TTL than entries so they never orphan a live entry.
type redisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// RedisCacheOption configures the Redis-backed cache.
type RedisCacheOption func(*redisCache)

// WithKeyPrefix overrides the default "resolver" key namespace.
func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *redisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets the logger for dropped cache operations.
func WithCacheLogger(log *slog.Logger) RedisCacheOption {
	return func(c *redisCache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewRedisCache creates a Redis-backed resolution cache.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, opts ...RedisCacheOption) Cache {
	if client == nil {
		panic("resolver: redis client is required")
	}
	c := &redisCache{
		client: client,
		ttl:    ttl,
		prefix: "resolver",
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) userKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:user:%s", c.prefix, userID)
}

func (c *redisCache) roleKey(roleID int64) string {
	return fmt.Sprintf("%s:role:%d", c.prefix, roleID)
}

func (c *redisCache) tenantKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:tenant:%s", c.prefix, tenantID)
}

func (c *redisCache) Get(ctx context.Context, userID uuid.UUID) ([]permission.Permission, bool) {
	raw, err := c.client.Get(ctx, c.userKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WarnContext(ctx, "resolution cache read failed", logger.UserID(userID), logger.Error(err))
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry is a miss; it will be overwritten on the next Set.
		c.log.WarnContext(ctx, "resolution cache entry corrupt", logger.UserID(userID), logger.Error(err))
		return nil, false
	}
	return e.Permissions, true
}

func (c *redisCache) Set(ctx context.Context, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.WarnContext(ctx, "resolution cache encode failed", logger.UserID(entry.UserID), logger.Error(err))
		return
	}

	userKey := c.userKey(entry.UserID)
	indexTTL := c.ttl + time.Minute

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, userKey, raw, c.ttl)
	for _, roleID := range entry.RoleIDs {
		key := c.roleKey(roleID)
		pipe.SAdd(ctx, key, userKey)
		pipe.Expire(ctx, key, indexTTL)
	}
	if entry.TenantID != nil {
		key := c.tenantKey(*entry.TenantID)
		pipe.SAdd(ctx, key, userKey)
		pipe.Expire(ctx, key, indexTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WarnContext(ctx, "resolution cache write failed", logger.UserID(entry.UserID), logger.Error(err))
	}
}

func (c *redisCache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Del(ctx, c.userKey(userID)).Err(); err != nil {
		c.log.WarnContext(ctx, "resolution cache invalidation failed", logger.UserID(userID), logger.Error(err))
	}
}

func (c *redisCache) InvalidateRole(ctx context.Context, roleID int64) {
	c.invalidateIndex(ctx, c.roleKey(roleID))
}

func (c *redisCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	c.invalidateIndex(ctx, c.tenantKey(tenantID))
}

// invalidateIndex deletes every user entry referenced by the index set, then
// the set itself.
func (c *redisCache) invalidateIndex(ctx context.Context, indexKey string) {
	userKeys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		c.log.WarnContext(ctx, "resolution cache index read failed", "key", indexKey, logger.Error(err))
		return
	}

	keys := append(userKeys, indexKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WarnContext(ctx, "resolution cache invalidation failed", "key", indexKey, logger.Error(err))
	}
}
