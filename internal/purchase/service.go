// Package purchase applies bought promotion products to yard cars.
package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/catalog"
	"github.com/ariefcatur/go-yard-listings/internal/listing"
	"github.com/ariefcatur/go-yard-listings/internal/metrics"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/ariefcatur/go-yard-listings/internal/receipts"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Cars is the MASTER access a purchase needs; *yard.Store implements it.
type Cars interface {
	Find(ctx context.Context, carID string) (*yard.Car, error)
	UpdatePromotion(ctx context.Context, ownerID, carID string, fn yard.PromotionFunc) (*yard.Car, error)
}

// Grant is one purchase request.
type Grant struct {
	ProductID string `json:"product_id"`
	Scope     string `json:"scope,omitempty"`
}

type Result struct {
	// Granted is true once the promotion is stored in MASTER.
	Granted           bool            `json:"granted"`
	Promotion         promotion.State `json:"promotion"`
	Tier              promotion.Tier  `json:"tier"`
	ProjectionTouched bool            `json:"projection_touched"`
	ReceiptID         string          `json:"receipt_id,omitempty"`
}

type Service struct {
	Cars       Cars
	Catalog    catalog.Catalog
	Projection listing.Store
	Receipts   receipts.Recorder
	Log        zerolog.Logger
}

var tracer = otel.Tracer("github.com/ariefcatur/go-yard-listings/internal/purchase")

// Apply grants product g.ProductID on carID. Ownership, product existence and
// product activity are checked before anything is written.
//
// When MASTER is written but the projection upsert fails, Apply returns the
// granted Result together with an ErrTransient error; the projector heals
// the listing from MASTER later.
func (s *Service) Apply(ctx context.Context, ownerID, carID string, g Grant, now time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "purchase.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("car.id", carID),
		attribute.String("owner.id", ownerID),
		attribute.String("product.id", g.ProductID),
	)
	now = now.UTC()

	res, err := s.apply(ctx, ownerID, carID, g, now)
	metrics.PromotionApplications.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (s *Service) apply(ctx context.Context, ownerID, carID string, g Grant, now time.Time) (Result, error) {
	car, err := s.Cars.Find(ctx, carID)
	if err != nil {
		return Result{}, err
	}
	if car.OwnerID != ownerID {
		return Result{}, apperr.New(apperr.ErrPermissionDenied, "car %s does not belong to %s", carID, ownerID)
	}
	product, err := s.Catalog.GetProduct(ctx, g.ProductID)
	if err != nil {
		return Result{}, err
	}
	if !product.Active {
		return Result{}, apperr.New(apperr.ErrFailedPrecondition, "product %s is not on sale", product.ID)
	}

	effect := product.Effect()
	updated, err := s.Cars.UpdatePromotion(ctx, ownerID, carID, func(cur yard.Car) (promotion.State, promotion.Tier, error) {
		next := promotion.Merge(cur.Promotion, effect, now)
		return next, promotion.Resolve(next, now), nil
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{Granted: true, Promotion: updated.Promotion, Tier: updated.Tier}

	var projErr error
	if updated.Listable() {
		// Reconcile re-reads MASTER so a sale racing this purchase is not undone.
		out, err := listing.Reconcile(ctx, s.Cars, s.Projection, carID, updated, now)
		if err != nil {
			metrics.ProjectionOps.WithLabelValues(metrics.OpFailure, metrics.SourcePurchase).Inc()
			projErr = apperr.Wrap(apperr.ErrTransient, err, "promotion saved, listing not refreshed")
		} else {
			op := metrics.OpUpsert
			if out == listing.Deleted {
				op = metrics.OpDelete
			}
			metrics.ProjectionOps.WithLabelValues(op, metrics.SourcePurchase).Inc()
			res.ProjectionTouched = true
		}
	}

	// The grant is already durable; receipts never undo it.
	id, err := s.Receipts.Record(ctx, receipts.Receipt{
		OwnerID:   ownerID,
		CarID:     carID,
		ProductID: product.ID,
		Scope:     g.Scope,
		Price:     product.Price,
		GrantedAt: now,
	})
	if err != nil {
		metrics.ReceiptFailures.Inc()
		s.Log.Error().Err(err).Str("car_id", carID).Str("product_id", product.ID).Msg("order receipt not recorded")
	} else {
		res.ReceiptID = id
	}

	s.Log.Info().Str("car_id", carID).Str("product_id", product.ID).Stringer("tier", res.Tier).
		Bool("projection_touched", res.ProjectionTouched).Msg("promotion applied")
	return res, projErr
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, apperr.ErrFailedPrecondition):
		return "failed_precondition"
	case apperr.IsTransient(err):
		return "transient"
	}
	return "internal"
}
