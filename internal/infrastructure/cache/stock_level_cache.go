package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	appprocurement "github.com/erp/procurement/internal/application/procurement"
	appstock "github.com/erp/procurement/internal/application/stock"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStockLevelCache caches derived stock levels in Redis. It is an
// acceleration layer only: the stock ledger stays the source of truth, and
// every committed movement invalidates the affected key.
type RedisStockLevelCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStockLevelCache creates a new Redis-backed stock level cache
func NewRedisStockLevelCache(cfg RedisConfig, ttl time.Duration) (*RedisStockLevelCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStockLevelCacheWithClient(client, "", ttl), nil
}

// NewRedisStockLevelCacheWithClient creates a cache with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisStockLevelCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStockLevelCache {
	if keyPrefix == "" {
		keyPrefix = "stock:level:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStockLevelCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// GetLevel returns the cached level for the key and whether it was present
func (c *RedisStockLevelCache) GetLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) (decimal.Decimal, bool, error) {
	value, err := c.client.Get(ctx, c.cacheKey(tenantID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read stock level from cache: %w", err)
	}

	level, err := decimal.NewFromString(value)
	if err != nil {
		// A corrupt value is treated as a miss; the ledger recomputes it.
		return decimal.Zero, false, nil
	}
	return level, true, nil
}

// SetLevel stores the level for the key with the configured TTL
func (c *RedisStockLevelCache) SetLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey, level decimal.Decimal) error {
	if err := c.client.Set(ctx, c.cacheKey(tenantID, key), level.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stock level: %w", err)
	}
	return nil
}

// InvalidateLevel drops the cached level for the key
func (c *RedisStockLevelCache) InvalidateLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) error {
	if err := c.client.Del(ctx, c.cacheKey(tenantID, key)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stock level: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisStockLevelCache) Close() error {
	return c.client.Close()
}

// cacheKey builds the Redis key for a stock level.
// Layout: <prefix><tenant>:<product>:<variant|->:<w|s>:<location>
func (c *RedisStockLevelCache) cacheKey(tenantID uuid.UUID, key stock.LevelKey) string {
	return c.keyPrefix + levelKeyString(tenantID, key)
}

// levelKeyString flattens a tenant-scoped level key into a string
func levelKeyString(tenantID uuid.UUID, key stock.LevelKey) string {
	variant := "-"
	if key.VariantID != nil {
		variant = key.VariantID.String()
	}

	locationKind := "w"
	var locationID uuid.UUID
	switch {
	case key.Location.WarehouseID != nil:
		locationID = *key.Location.WarehouseID
	case key.Location.ShopID != nil:
		locationKind = "s"
		locationID = *key.Location.ShopID
	}

	return fmt.Sprintf("%s:%s:%s:%s:%s", tenantID, key.ProductID, variant, locationKind, locationID)
}

// Ensure RedisStockLevelCache serves both the read cache and the invalidator
var _ appstock.LevelCache = (*RedisStockLevelCache)(nil)
var _ appprocurement.StockLevelInvalidator = (*RedisStockLevelCache)(nil)
