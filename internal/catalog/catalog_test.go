package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/postgres/pgtest"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCatalog struct {
	products map[string]Product
	calls    int
}

func (c *countingCatalog) IsActive(_ context.Context, id string) (bool, error) {
	p, ok := c.products[id]
	if !ok {
		return false, apperr.New(apperr.ErrNotFound, "product %s", id)
	}
	return p.Active, nil
}

func (c *countingCatalog) GetProduct(_ context.Context, id string) (*Product, error) {
	c.calls++
	p, ok := c.products[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "product %s", id)
	}
	return &p, nil
}

func boost7d() Product {
	return Product{
		ID: "boost-7d", Name: "Boost 7 days", Kinds: []promotion.Kind{promotion.KindBoost},
		DurationDays: 7, Price: decimal.RequireFromString("29.00"), Active: true,
	}
}

func TestCachedCatalog_CachesHits(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	backing := &countingCatalog{products: map[string]Product{"boost-7d": boost7d()}}
	c := NewCachedCatalog(backing, rdb, time.Minute, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.GetProduct(ctx, "boost-7d")
		require.NoError(t, err)
		assert.Equal(t, []promotion.Kind{promotion.KindBoost}, p.Kinds)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("29")))
	}
	assert.Equal(t, 1, backing.calls)

	mr.FastForward(2 * time.Minute)
	_, err := c.GetProduct(ctx, "boost-7d")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedCatalog_DeactivationIsSeenBeforeExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	backing := &countingCatalog{products: map[string]Product{"boost-7d": boost7d()}}
	c := NewCachedCatalog(backing, rdb, time.Hour, zerolog.Nop())
	ctx := context.Background()

	p, err := c.GetProduct(ctx, "boost-7d")
	require.NoError(t, err)
	require.True(t, p.Active)

	retired := backing.products["boost-7d"]
	retired.Active = false
	backing.products["boost-7d"] = retired

	p, err = c.GetProduct(ctx, "boost-7d")
	require.NoError(t, err)
	assert.False(t, p.Active)
	assert.Equal(t, 1, backing.calls, "definition still served from cache")

	delete(backing.products, "boost-7d")
	_, err = c.GetProduct(ctx, "boost-7d")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCachedCatalog_DoesNotCacheMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	backing := &countingCatalog{products: map[string]Product{}}
	c := NewCachedCatalog(backing, rdb, time.Minute, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := c.GetProduct(context.Background(), "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
	assert.Equal(t, 2, backing.calls)
	assert.False(t, mr.Exists("promo_product:nope"))
}

func TestCachedCatalog_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()
	backing := &countingCatalog{products: map[string]Product{"boost-7d": boost7d()}}
	c := NewCachedCatalog(backing, rdb, time.Minute, zerolog.Nop())

	p, err := c.GetProduct(context.Background(), "boost-7d")
	require.NoError(t, err)
	assert.Equal(t, "boost-7d", p.ID)
}

func TestPostgresCatalog_SeededProducts(t *testing.T) {
	pool := pgtest.Pool(t)
	c := &PostgresCatalog{DB: pool}
	ctx := context.Background()

	p, err := c.GetProduct(ctx, "diamond-30d")
	require.NoError(t, err)
	assert.Equal(t, 30, p.DurationDays)
	assert.ElementsMatch(t, []promotion.Kind{promotion.KindDiamond, promotion.KindBoost, promotion.KindHighlight}, p.Kinds)
	assert.True(t, p.Active)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("249")))

	_, err = c.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	active, err := c.IsActive(ctx, "boost-7d")
	require.NoError(t, err)
	assert.True(t, active)
	_, err = c.IsActive(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
