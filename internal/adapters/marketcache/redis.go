package marketcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sibyl/internal/adapters/config"
	"sibyl/internal/domain/market"
	"sibyl/pkg/logger"
)

const snapshotKey = "sibyl:market:snapshot"

// Cache stores the latest market snapshot in Redis so frequent readers
// (status endpoints, chart fallbacks) do not hammer the upstream APIs
// between refresh ticks. Misses and Redis failures are treated the same:
// the caller fetches fresh data.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a snapshot cache backed by Redis
func New(cfg config.RedisConfig, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Cache{
		client: client,
		ttl:    ttl,
		log:    logger.Get().With("component", "market_cache"),
	}
}

// Get returns the cached snapshot, if present and fresh
func (c *Cache) Get(ctx context.Context) (*market.Snapshot, bool) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debugf("Snapshot cache read failed: %v", err)
		}
		return nil, false
	}

	var snapshot market.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.log.Warnf("Corrupt cached snapshot, ignoring: %v", err)
		return nil, false
	}
	return &snapshot, true
}

// Set stores the snapshot with the configured TTL
func (c *Cache) Set(ctx context.Context, snapshot *market.Snapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		c.log.Warnf("Marshal snapshot for cache failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.log.Debugf("Snapshot cache write failed: %v", err)
	}
}

// Close releases the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
