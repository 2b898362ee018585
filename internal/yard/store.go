package yard

import (
	"context"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Repository is the persistence the Store needs; *Repo implements it.
type Repository interface {
	Create(ctx context.Context, c *Car) error
	Find(ctx context.Context, carID string) (*Car, error)
	Get(ctx context.Context, ownerID, carID string) (*Car, error)
	Update(ctx context.Context, ownerID, carID string, p Patch) (*Car, error)
	UpdatePromotion(ctx context.Context, ownerID, carID string, fn PromotionFunc) (*Car, error)
	Delete(ctx context.Context, ownerID, carID string) (bool, error)
	ListKeys(ctx context.Context, afterID string, limit int) ([]Key, error)
}

// Notifier announces that a car changed.
type Notifier interface {
	Notify(ctx context.Context, n ChangeNotification) error
}

// Store is the MASTER store: every successful write or delete is followed by
// a change notification. A failed notification is logged, never returned;
// the projector's reconciliation sweep catches up.
type Store struct {
	repo     Repository
	notifier Notifier
	log      zerolog.Logger
}

func NewStore(repo Repository, notifier Notifier, log zerolog.Logger) *Store {
	return &Store{repo: repo, notifier: notifier, log: log.With().Str("component", "yard_store").Logger()}
}

var tracer = otel.Tracer("github.com/ariefcatur/go-yard-listings/internal/yard")

// Create inserts a new draft car for ownerID.
func (s *Store) Create(ctx context.Context, ownerID string, d Patch) (*Car, error) {
	ctx, span := tracer.Start(ctx, "yard.Create")
	defer span.End()

	if ownerID == "" {
		return nil, apperr.New(apperr.ErrInvalidArgument, "owner id required")
	}
	if d.Publication != nil || d.Sale != nil {
		return nil, apperr.New(apperr.ErrInvalidArgument, "new cars start as draft and active")
	}
	c := d.Apply(Car{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Publication: Draft,
		Sale:        Active,
	})
	if err := ValidateDetails(c); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("car.id", c.ID))
	s.notify(ctx, ChangeNotification{OwnerID: ownerID, CarID: c.ID, ExistsAfter: true})
	return &c, nil
}

func (s *Store) Get(ctx context.Context, ownerID, carID string) (*Car, error) {
	return s.repo.Get(ctx, ownerID, carID)
}

func (s *Store) Find(ctx context.Context, carID string) (*Car, error) {
	return s.repo.Find(ctx, carID)
}

func (s *Store) ListKeys(ctx context.Context, afterID string, limit int) ([]Key, error) {
	return s.repo.ListKeys(ctx, afterID, limit)
}

// Write is the raw merge write. Callers validate before calling it.
func (s *Store) Write(ctx context.Context, ownerID, carID string, p Patch) (*Car, error) {
	ctx, span := tracer.Start(ctx, "yard.Write")
	defer span.End()
	span.SetAttributes(attribute.String("car.id", carID))

	c, err := s.repo.Update(ctx, ownerID, carID, p)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ChangeNotification{OwnerID: ownerID, CarID: carID, ExistedBefore: true, ExistsAfter: true})
	return c, nil
}

// Edit changes display fields only.
func (s *Store) Edit(ctx context.Context, ownerID, carID string, p Patch) (*Car, error) {
	if p.Publication != nil || p.Sale != nil {
		return nil, apperr.New(apperr.ErrInvalidArgument, "use the publication and sold endpoints for state changes")
	}
	if p.Empty() {
		return nil, apperr.New(apperr.ErrInvalidArgument, "nothing to update")
	}
	cur, err := s.repo.Get(ctx, ownerID, carID)
	if err != nil {
		return nil, err
	}
	if err := ValidateDetails(p.Apply(*cur)); err != nil {
		return nil, err
	}
	return s.Write(ctx, ownerID, carID, p)
}

// SetPublication moves a car between draft, published and archived.
func (s *Store) SetPublication(ctx context.Context, ownerID, carID string, to PublicationState) (*Car, error) {
	cur, err := s.repo.Get(ctx, ownerID, carID)
	if err != nil {
		return nil, err
	}
	if cur.Sale == Sold && to == Published {
		return nil, apperr.New(apperr.ErrFailedPrecondition, "car %s is sold", carID)
	}
	if !CanTransition(cur.Publication, to) {
		return nil, apperr.New(apperr.ErrFailedPrecondition, "cannot move car from %s to %s", cur.Publication, to)
	}
	return s.Write(ctx, ownerID, carID, Patch{Publication: &to})
}

// MarkSold completes the sale. Repeating it is harmless.
func (s *Store) MarkSold(ctx context.Context, ownerID, carID string) (*Car, error) {
	if _, err := s.repo.Get(ctx, ownerID, carID); err != nil {
		return nil, err
	}
	sold := Sold
	return s.Write(ctx, ownerID, carID, Patch{Sale: &sold})
}

// UpdatePromotion writes promotion and tier under a row lock.
func (s *Store) UpdatePromotion(ctx context.Context, ownerID, carID string, fn PromotionFunc) (*Car, error) {
	ctx, span := tracer.Start(ctx, "yard.UpdatePromotion")
	defer span.End()

	c, err := s.repo.UpdatePromotion(ctx, ownerID, carID, fn)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ChangeNotification{OwnerID: ownerID, CarID: carID, ExistedBefore: true, ExistsAfter: true})
	return c, nil
}

// Delete removes a car; deleting a missing car is not an error.
func (s *Store) Delete(ctx context.Context, ownerID, carID string) error {
	existed, err := s.repo.Delete(ctx, ownerID, carID)
	if err != nil {
		return err
	}
	s.notify(ctx, ChangeNotification{OwnerID: ownerID, CarID: carID, ExistedBefore: existed})
	return nil
}

func (s *Store) notify(ctx context.Context, n ChangeNotification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("car_id", n.CarID).Msg("change notification not sent")
	}
}

// ValidateDetails checks display fields before they reach MASTER.
func ValidateDetails(c Car) error {
	switch {
	case c.Year != 0 && (c.Year < 1900 || c.Year > time.Now().Year()+1):
		return apperr.New(apperr.ErrInvalidArgument, "year %d out of range", c.Year)
	case c.Mileage < 0:
		return apperr.New(apperr.ErrInvalidArgument, "mileage must not be negative")
	case c.PriceCents < 0:
		return apperr.New(apperr.ErrInvalidArgument, "price must not be negative")
	case len(c.Images) > 40:
		return apperr.New(apperr.ErrInvalidArgument, "at most 40 images")
	}
	return nil
}
