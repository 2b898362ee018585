// Package catalog reads promotion products. Products are authored elsewhere;
// this service only looks them up.
package catalog

import (
	"context"

	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/shopspring/decimal"
)

// Product is a purchasable promotion bundle.
type Product struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kinds        []promotion.Kind `json:"kinds"`
	DurationDays int              `json:"duration_days"`
	Price        decimal.Decimal  `json:"price"`
	Active       bool             `json:"is_active"`
}

// Effect is what granting p does to a promotion snapshot.
func (p Product) Effect() promotion.Effect {
	return promotion.Effect{Kinds: append([]promotion.Kind(nil), p.Kinds...), DurationDays: p.DurationDays}
}

type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

// Source is a catalog that can answer the activity flag on its own, so a
// cache in front of it never serves a stale one.
type Source interface {
	Catalog
	IsActive(ctx context.Context, productID string) (bool, error)
}
