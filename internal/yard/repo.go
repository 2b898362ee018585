package yard

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PromotionFunc computes the next promotion snapshot and tier from the
// locked, current record.
type PromotionFunc func(current Car) (promotion.State, promotion.Tier, error)

type Repo struct{ DB *pgxpool.Pool }

const carColumns = `id, owner_id, publication_state, sale_state, brand, model, year, mileage, price_cents,
	images, city, description, promotion, tier, created_at, updated_at`

func scanCar(row pgx.Row) (*Car, error) {
	var (
		c         Car
		pub, sale string
		tier      string
		promo     []byte
	)
	err := row.Scan(&c.ID, &c.OwnerID, &pub, &sale, &c.Brand, &c.Model, &c.Year, &c.Mileage, &c.PriceCents,
		&c.Images, &c.City, &c.Description, &promo, &tier, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Publication = PublicationState(pub)
	c.Sale = SaleState(sale)
	if len(promo) > 0 {
		if err := json.Unmarshal(promo, &c.Promotion); err != nil {
			return nil, errors.Wrap(err, "decode promotion")
		}
	}
	if c.Tier, err = promotion.ParseTier(tier); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, c *Car) error {
	promo, err := json.Marshal(c.Promotion)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err, "encode promotion")
	}
	images := c.Images
	if images == nil {
		images = []string{}
	}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO yard_cars(id, owner_id, publication_state, sale_state, brand, model, year, mileage,
		                      price_cents, images, city, description, promotion, tier)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		c.ID, c.OwnerID, string(c.Publication), string(c.Sale), c.Brand, c.Model, c.Year, c.Mileage,
		c.PriceCents, images, c.City, c.Description, promo, c.Tier.String(),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return postgres.Classify(err, "insert yard car")
}

// Find loads a car by id regardless of owner.
func (r *Repo) Find(ctx context.Context, carID string) (*Car, error) {
	c, err := scanCar(r.DB.QueryRow(ctx, `SELECT `+carColumns+` FROM yard_cars WHERE id=$1`, carID))
	if err != nil {
		return nil, postgres.Classify(err, "find yard car")
	}
	return c, nil
}

// Get loads a car within its owner's inventory.
func (r *Repo) Get(ctx context.Context, ownerID, carID string) (*Car, error) {
	c, err := scanCar(r.DB.QueryRow(ctx,
		`SELECT `+carColumns+` FROM yard_cars WHERE id=$1 AND owner_id=$2`, carID, ownerID))
	if err != nil {
		return nil, postgres.Classify(err, "get yard car")
	}
	return c, nil
}

// Update merge-writes the non-nil fields of p and returns the new record.
func (r *Repo) Update(ctx context.Context, ownerID, carID string, p Patch) (*Car, error) {
	cols, args := p.assignments(2)
	if len(cols) == 0 {
		return r.Get(ctx, ownerID, carID)
	}
	cols = append(cols, "updated_at = now()")
	q := `UPDATE yard_cars SET ` + strings.Join(cols, ", ") +
		` WHERE id=$1 AND owner_id=$2 RETURNING ` + carColumns
	c, err := scanCar(r.DB.QueryRow(ctx, q, append([]any{carID, ownerID}, args...)...))
	if err != nil {
		return nil, postgres.Classify(err, "update yard car")
	}
	return c, nil
}

// UpdatePromotion locks the row (FOR UPDATE), lets fn derive the next
// promotion from the locked record and writes promotion and tier together.
// Concurrent purchases on the same car therefore merge one after the other.
func (r *Repo) UpdatePromotion(ctx context.Context, ownerID, carID string, fn PromotionFunc) (*Car, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, postgres.Classify(err, "begin promotion tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanCar(tx.QueryRow(ctx,
		`SELECT `+carColumns+` FROM yard_cars WHERE id=$1 AND owner_id=$2 FOR UPDATE`, carID, ownerID))
	if err != nil {
		return nil, postgres.Classify(err, "lock yard car")
	}
	state, tier, err := fn(*cur)
	if err != nil {
		return nil, err
	}
	promo, err := json.Marshal(state)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, err, "encode promotion")
	}
	next, err := scanCar(tx.QueryRow(ctx, `
		UPDATE yard_cars SET promotion=$3, tier=$4, updated_at=now()
		WHERE id=$1 AND owner_id=$2
		RETURNING `+carColumns, carID, ownerID, promo, tier.String()))
	if err != nil {
		return nil, postgres.Classify(err, "write promotion")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, postgres.Classify(err, "commit promotion tx")
	}
	return next, nil
}

// Delete removes a car. It reports whether a row existed.
func (r *Repo) Delete(ctx context.Context, ownerID, carID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM yard_cars WHERE id=$1 AND owner_id=$2`, carID, ownerID)
	if err != nil {
		return false, postgres.Classify(err, "delete yard car")
	}
	return ct.RowsAffected() == 1, nil
}

// ListKeys pages through every car ordered by id, starting after afterID.
func (r *Repo) ListKeys(ctx context.Context, afterID string, limit int) ([]Key, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT owner_id, id FROM yard_cars WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, postgres.Classify(err, "list yard cars")
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.OwnerID, &k.CarID); err != nil {
			return nil, postgres.Classify(err, "scan yard car key")
		}
		out = append(out, k)
	}
	return out, postgres.Classify(rows.Err(), "list yard cars")
}
