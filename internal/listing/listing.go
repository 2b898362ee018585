// Package listing maintains the public, read-optimised projection of yard
// cars: which cars are visible, what they show and how they rank.
package listing

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
)

// Listing is the public document for one car, keyed by the car id.
type Listing struct {
	CarID       string          `json:"car_id"`
	OwnerID     string          `json:"owner_id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        int             `json:"year"`
	Mileage     int             `json:"mileage"`
	PriceCents  int64           `json:"price_cents"`
	Images      []string        `json:"images"`
	City        string          `json:"city,omitempty"`
	Description string          `json:"description,omitempty"`
	Promotion   promotion.State `json:"promotion"`
	Tier        promotion.Tier  `json:"tier"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store persists projections. Both writes are idempotent: Upsert merges
// fields into an existing document and Delete of a missing one succeeds.
type Store interface {
	Upsert(ctx context.Context, l Listing) error
	Delete(ctx context.Context, carID string) error
	Get(ctx context.Context, carID string) (*Listing, error)
	ListRanked(ctx context.Context, offset, limit int) ([]Listing, error)
	ListKeys(ctx context.Context, offset, limit int) ([]yard.Key, error)
}

// Build derives the projection of c. The tier is resolved at now, not copied.
func Build(c yard.Car, now time.Time) Listing {
	images := append([]string{}, c.Images...)
	return Listing{
		CarID:       c.ID,
		OwnerID:     c.OwnerID,
		Brand:       c.Brand,
		Model:       c.Model,
		Year:        c.Year,
		Mileage:     c.Mileage,
		PriceCents:  c.PriceCents,
		Images:      images,
		City:        c.City,
		Description: c.Description,
		Promotion:   c.Promotion.Clone(),
		Tier:        promotion.Resolve(c.Promotion, now),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}

// Rerank re-resolves every tier at now and orders by tier, then by the most
// recent boost. Stored tiers may have expired since the last write.
func Rerank(ls []Listing, now time.Time) {
	for i := range ls {
		ls[i].Tier = promotion.Resolve(ls[i].Promotion, now)
	}
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Tier != ls[j].Tier {
			return ls[i].Tier > ls[j].Tier
		}
		return freshness(ls[i]) > freshness(ls[j])
	})
}

func freshness(l Listing) int64 {
	if l.Promotion.LastPromotedAt == nil {
		return 0
	}
	return l.Promotion.LastPromotedAt.UnixMilli()
}

// rankScore orders the browse index: tier dominates, freshness breaks ties.
func rankScore(l Listing) float64 {
	return float64(l.Tier)*1e13 + float64(freshness(l))
}
