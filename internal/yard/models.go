package yard

import (
	"strconv"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/promotion"
)

// Car is the yard-owned inventory record (MASTER). Promotion and Tier are only
// written through Store.UpdatePromotion so Tier always matches Promotion at
// the time of the last write.
type Car struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Publication PublicationState `json:"publication_state"`
	Sale        SaleState        `json:"sale_state"`

	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	Mileage     int      `json:"mileage"`
	PriceCents  int64    `json:"price_cents"`
	Images      []string `json:"images"`
	City        string   `json:"city,omitempty"`
	Description string   `json:"description,omitempty"`

	Promotion promotion.State `json:"promotion"`
	Tier      promotion.Tier  `json:"tier"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Listable reports whether the public listing for c should exist.
func (c Car) Listable() bool {
	return c.Publication == Published && c.Sale != Sold
}

// Patch is a partial write. Nil fields are left untouched.
type Patch struct {
	Publication *PublicationState
	Sale        *SaleState
	Brand       *string
	Model       *string
	Year        *int
	Mileage     *int
	PriceCents  *int64
	Images      *[]string
	City        *string
	Description *string
}

// Empty reports whether p would change nothing.
func (p Patch) Empty() bool {
	cols, _ := p.assignments(0)
	return len(cols) == 0
}

// assignments renders "col = $n" fragments starting after offset placeholders.
func (p Patch) assignments(offset int) (cols []string, args []any) {
	add := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, col+" = $"+strconv.Itoa(offset+len(args)))
	}
	if p.Publication != nil {
		add("publication_state", string(*p.Publication))
	}
	if p.Sale != nil {
		add("sale_state", string(*p.Sale))
	}
	if p.Brand != nil {
		add("brand", *p.Brand)
	}
	if p.Model != nil {
		add("model", *p.Model)
	}
	if p.Year != nil {
		add("year", *p.Year)
	}
	if p.Mileage != nil {
		add("mileage", *p.Mileage)
	}
	if p.PriceCents != nil {
		add("price_cents", *p.PriceCents)
	}
	if p.Images != nil {
		imgs := *p.Images
		if imgs == nil {
			imgs = []string{}
		}
		add("images", imgs)
	}
	if p.City != nil {
		add("city", *p.City)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	return cols, args
}

// Apply returns c with p merged in.
func (p Patch) Apply(c Car) Car {
	if p.Publication != nil {
		c.Publication = *p.Publication
	}
	if p.Sale != nil {
		c.Sale = *p.Sale
	}
	if p.Brand != nil {
		c.Brand = *p.Brand
	}
	if p.Model != nil {
		c.Model = *p.Model
	}
	if p.Year != nil {
		c.Year = *p.Year
	}
	if p.Mileage != nil {
		c.Mileage = *p.Mileage
	}
	if p.PriceCents != nil {
		c.PriceCents = *p.PriceCents
	}
	if p.Images != nil {
		c.Images = append([]string(nil), (*p.Images)...)
	}
	if p.City != nil {
		c.City = *p.City
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	return c
}

// Key addresses one car.
type Key struct {
	OwnerID string
	CarID   string
}
