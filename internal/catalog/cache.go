package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedCatalog is a cache-aside wrapper for the product definition. The
// activity flag is read from the backing source on every lookup. Cache
// failures fall through to the source; lookups that fail are not cached.
type CachedCatalog struct {
	next Source
	rdb  redis.Cmdable
	ttl  time.Duration
	log  zerolog.Logger
}

func NewCachedCatalog(next Source, rdb redis.Cmdable, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = redisx.TTLCatalogCache
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, log: log.With().Str("component", "catalog_cache").Logger()}
}

func (c *CachedCatalog) GetProduct(ctx context.Context, productID string) (*Product, error) {
	key := fmt.Sprintf(redisx.KeyPromoProduct, productID)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Product
		if jerr := json.Unmarshal(b, &p); jerr == nil {
			if p.Active, err = c.next.IsActive(ctx, productID); err != nil {
				return nil, err
			}
			return &p, nil
		}
		c.log.Warn().Str("product_id", productID).Msg("dropping undecodable cache entry")
	case err != redis.Nil:
		c.log.Warn().Err(err).Str("product_id", productID).Msg("catalog cache read failed")
	}

	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("product_id", productID).Msg("catalog cache write failed")
		}
	}
	return p, nil
}
