// Package rediscache adds a read-through Redis cache in front of the
// product repository. Reads of single products and the full catalog are
// served from cache when warm; every write invalidates the affected keys.
// Cache failures never fail a request, the call falls through to the
// backing repository.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/xenking/mini-store/internal/domain/product"
)

var _ product.Repository = (*ProductCache)(nil)

const (
	productKeyPrefix = "product:"
	catalogKey       = "products:all"

	defaultTTL = 5 * time.Minute
)

// ProductCache decorates a product.Repository with Redis caching.
type ProductCache struct {
	inner  product.Repository
	client *redis.Client
	ttl    time.Duration
}

// New returns a ProductCache wrapping inner. A zero ttl selects the
// default of five minutes.
func New(inner product.Repository, client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ProductCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

// Ping verifies the Redis connection.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetByID serves the product from cache when present, otherwise loads it
// from the backing repository and caches the result.
func (c *ProductCache) GetByID(ctx context.Context, id string) (*product.Product, error) {
	key := productKeyPrefix + id

	var cached product.Product
	if err := c.getJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	p, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, p)
	return p, nil
}

// List serves the full catalog from cache when warm.
func (c *ProductCache) List(ctx context.Context) ([]product.Product, error) {
	var cached []product.Product
	if err := c.getJSON(ctx, catalogKey, &cached); err == nil {
		return cached, nil
	}

	products, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, catalogKey, products)
	return products, nil
}

// GetByIDs is a pass-through; batch lookups are request-shaped and not
// worth the partial-hit bookkeeping.
func (c *ProductCache) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return c.inner.GetByIDs(ctx, ids)
}

// Search is a pass-through; query results are too varied to cache usefully.
func (c *ProductCache) Search(ctx context.Context, query string, limit int64) ([]product.Product, error) {
	return c.inner.Search(ctx, query, limit)
}

// Create writes through and invalidates the catalog listing.
func (c *ProductCache) Create(ctx context.Context, p *product.Product) error {
	if err := c.inner.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, catalogKey)
	return nil
}

// Update writes through and invalidates both the product and the catalog.
func (c *ProductCache) Update(ctx context.Context, p *product.Product) error {
	if err := c.inner.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, productKeyPrefix+p.ID, catalogKey)
	return nil
}

// Delete writes through and invalidates both the product and the catalog.
func (c *ProductCache) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, productKeyPrefix+id, catalogKey)
	return nil
}

// AdjustStock writes through and invalidates the product; stock shows up
// in cached reads so stale entries must go.
func (c *ProductCache) AdjustStock(ctx context.Context, id string, delta int64) error {
	if err := c.inner.AdjustStock(ctx, id, delta); err != nil {
		return err
	}
	c.invalidate(ctx, productKeyPrefix+id, catalogKey)
	return nil
}

// Close releases the Redis client.
func (c *ProductCache) Close() error {
	return c.client.Close()
}

func (c *ProductCache) getJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (c *ProductCache) setJSON(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		zctx.From(ctx).Warn("Cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (c *ProductCache) invalidate(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		zctx.From(ctx).Warn("Cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}
