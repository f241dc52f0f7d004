package cache

import (
	"context"
	"sync"
	"time"

	appprocurement "github.com/erp/procurement/internal/application/procurement"
	appstock "github.com/erp/procurement/internal/application/stock"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryLevel struct {
	value     decimal.Decimal
	expiresAt time.Time
}

// InMemoryStockLevelCache is a process-local stock level cache for tests and
// single-instance deployments. Expired entries are evicted lazily on read.
type InMemoryStockLevelCache struct {
	mu     sync.RWMutex
	levels map[string]inMemoryLevel
	ttl    time.Duration
}

// NewInMemoryStockLevelCache creates an in-memory stock level cache
func NewInMemoryStockLevelCache(ttl time.Duration) *InMemoryStockLevelCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &InMemoryStockLevelCache{
		levels: make(map[string]inMemoryLevel),
		ttl:    ttl,
	}
}

// GetLevel returns the cached level for the key and whether it was present
func (c *InMemoryStockLevelCache) GetLevel(_ context.Context, tenantID uuid.UUID, key stock.LevelKey) (decimal.Decimal, bool, error) {
	k := levelKeyString(tenantID, key)

	c.mu.RLock()
	entry, ok := c.levels[k]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.levels, k)
		c.mu.Unlock()
		return decimal.Zero, false, nil
	}
	return entry.value, true, nil
}

// SetLevel stores the level for the key with the configured TTL
func (c *InMemoryStockLevelCache) SetLevel(_ context.Context, tenantID uuid.UUID, key stock.LevelKey, level decimal.Decimal) error {
	c.mu.Lock()
	c.levels[levelKeyString(tenantID, key)] = inMemoryLevel{
		value:     level,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// InvalidateLevel drops the cached level for the key
func (c *InMemoryStockLevelCache) InvalidateLevel(_ context.Context, tenantID uuid.UUID, key stock.LevelKey) error {
	c.mu.Lock()
	delete(c.levels, levelKeyString(tenantID, key))
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached levels, including expired ones not yet evicted
func (c *InMemoryStockLevelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.levels)
}

// Ensure InMemoryStockLevelCache serves both the read cache and the invalidator
var _ appstock.LevelCache = (*InMemoryStockLevelCache)(nil)
var _ appprocurement.StockLevelInvalidator = (*InMemoryStockLevelCache)(nil)
