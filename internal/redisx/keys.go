package redisx

import "time"

const (
	// Public listing document: hash listing:{car_id}
	KeyListing = "listing:%s"

	// Ranked browse index: zset of car ids scored by tier then freshness
	KeyListingRank = "listings:rank"

	// Dedup notification processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Catalog product cache: promo_product:{product_id} -> json
	KeyPromoProduct = "promo_product:%s"
)

var (
	TTLDedup        = 48 * time.Hour
	TTLCatalogCache = 5 * time.Minute
)
