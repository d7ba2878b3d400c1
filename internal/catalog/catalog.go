package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/store"
	"cart-service/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Client resolves catalog products for price backfill. Lookups go through
// a Redis cache with the Postgres catalog as the source of truth.
type Client struct {
	store    *store.Store
	rdb      *redis.Client
	prefix   string
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient creates a new catalog client
func NewClient(store *store.Store, rdb *redis.Client, prefix string, cacheTTL time.Duration) *Client {
	return &Client{
		store:    store,
		rdb:      rdb,
		prefix:   prefix,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

func (c *Client) cacheKey(productID int64) string {
	return fmt.Sprintf("%s:catalog:product:%d", c.prefix, productID)
}

func (c *Client) skuCacheKey(sku string) string {
	return fmt.Sprintf("%s:catalog:sku:%s", c.prefix, sku)
}

// LookupProduct retrieves a product, cache first with DB fallback
func (c *Client) LookupProduct(ctx context.Context, productID int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.LookupProduct")
	defer span.End()

	key := c.cacheKey(productID)
	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var product models.Product
		if err := json.Unmarshal(cached, &product); err == nil {
			return &product, nil
		}
		// poisoned cache entry, fall through to the DB
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("Failed to drop bad catalog cache entry",
				zap.Int64("product_id", productID), zap.Error(err))
		}
	} else if err != redis.Nil {
		c.logger.Warn("Catalog cache read failed, falling back to DB",
			zap.Int64("product_id", productID), zap.Error(err))
	}

	product, err := c.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed for product %d: %w", productID, err)
	}

	if payload, err := json.Marshal(product); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("Failed to cache catalog product",
				zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	return product, nil
}

// LookupProductBySKU retrieves a product by SKU, cache first with DB
// fallback. Used when a cart line's snapshot still carries a SKU but its
// product id no longer resolves.
func (c *Client) LookupProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.LookupProductBySKU")
	defer span.End()

	key := c.skuCacheKey(sku)
	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var product models.Product
		if err := json.Unmarshal(cached, &product); err == nil {
			return &product, nil
		}
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("Failed to drop bad catalog cache entry",
				zap.String("sku", sku), zap.Error(err))
		}
	} else if err != redis.Nil {
		c.logger.Warn("Catalog cache read failed, falling back to DB",
			zap.String("sku", sku), zap.Error(err))
	}

	product, err := c.store.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed for sku %s: %w", sku, err)
	}

	if payload, err := json.Marshal(product); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("Failed to cache catalog product",
				zap.String("sku", sku), zap.Error(err))
		}
	}

	return product, nil
}

// WarmCache preloads catalog entries for a set of products
func (c *Client) WarmCache(ctx context.Context, productIDs []int64) error {
	products, err := c.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	for i := range products {
		payload, err := json.Marshal(&products[i])
		if err != nil {
			continue
		}
		if err := c.rdb.Set(ctx, c.cacheKey(products[i].ID), payload, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("Failed to warm catalog cache",
				zap.Int64("product_id", products[i].ID), zap.Error(err))
		}
	}

	c.logger.Info("Catalog cache warmed", zap.Int("count", len(products)))
	return nil
}
