package catalog

import (
	"context"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresCatalog struct{ DB *pgxpool.Pool }

func (c *PostgresCatalog) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var (
		p     Product
		kinds []string
		price string
	)
	err := c.DB.QueryRow(ctx, `
		SELECT id, name, kinds, duration_days, price::text, is_active
		FROM promotion_products WHERE id=$1`, productID,
	).Scan(&p.ID, &p.Name, &kinds, &p.DurationDays, &price, &p.Active)
	if err != nil {
		return nil, postgres.Classify(err, "get promotion product")
	}
	p.Kinds = promotion.ParseKinds(kinds)
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, err, "decode product price")
	}
	return &p, nil
}

func (c *PostgresCatalog) IsActive(ctx context.Context, productID string) (bool, error) {
	var active bool
	err := c.DB.QueryRow(ctx, `SELECT is_active FROM promotion_products WHERE id=$1`, productID).Scan(&active)
	if err != nil {
		return false, postgres.Classify(err, "get promotion product status")
	}
	return active, nil
}
