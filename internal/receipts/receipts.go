// Package receipts keeps the append-only record of promotion purchases.
package receipts

import (
	"context"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Receipt struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	CarID     string          `json:"car_id"`
	ProductID string          `json:"product_id"`
	Scope     string          `json:"scope,omitempty"`
	Price     decimal.Decimal `json:"price"`
	GrantedAt time.Time       `json:"granted_at"`
}

type Recorder interface {
	Record(ctx context.Context, r Receipt) (string, error)
}

type PostgresRecorder struct{ DB *pgxpool.Pool }

// Record appends r and returns its id. An empty r.ID gets a fresh one.
func (p *PostgresRecorder) Record(ctx context.Context, r Receipt) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := p.DB.Exec(ctx, `
		INSERT INTO order_receipts(id, owner_id, car_id, product_id, scope, price, granted_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7)`,
		r.ID, r.OwnerID, r.CarID, r.ProductID, r.Scope, r.Price.String(), r.GrantedAt.UTC())
	if err != nil {
		return "", postgres.Classify(err, "insert order receipt")
	}
	return r.ID, nil
}

// ListByOwner returns an owner's receipts, newest first.
func (p *PostgresRecorder) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Receipt, error) {
	rows, err := p.DB.Query(ctx, `
		SELECT id, owner_id, car_id, product_id, scope, price::text, granted_at
		FROM order_receipts WHERE owner_id=$1 ORDER BY granted_at DESC, id LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, postgres.Classify(err, "list order receipts")
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var (
			r     Receipt
			price string
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.CarID, &r.ProductID, &r.Scope, &price, &r.GrantedAt); err != nil {
			return nil, postgres.Classify(err, "scan order receipt")
		}
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, postgres.Classify(err, "decode receipt price")
		}
		out = append(out, r)
	}
	return out, postgres.Classify(rows.Err(), "list order receipts")
}
