package listing

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
)

// Finder reads one MASTER record by id.
type Finder interface {
	Find(ctx context.Context, carID string) (*yard.Car, error)
}

const maxReconcileRounds = 4

// Reconcile writes the projection for car (nil when the MASTER row is gone)
// and then re-reads MASTER. Two runs for the same car can interleave so that
// the older snapshot is written last; when the re-read differs from what was
// written, the newer snapshot is written too. The run that saw MASTER hold
// still has the last word. After maxReconcileRounds it gives up and leaves
// the rest to the sweep.
func Reconcile(ctx context.Context, f Finder, st Store, carID string, car *yard.Car, now time.Time) (Outcome, error) {
	var out Outcome
	for round := 0; round < maxReconcileRounds; round++ {
		var err error
		if out, err = write(ctx, st, carID, car, now); err != nil {
			return out, err
		}
		next, err := find(ctx, f, carID)
		if err != nil {
			return out, err
		}
		if sameSnapshot(car, next) {
			return out, nil
		}
		car = next
	}
	return out, nil
}

func write(ctx context.Context, st Store, carID string, car *yard.Car, now time.Time) (Outcome, error) {
	if car == nil || !car.Listable() {
		return Deleted, st.Delete(ctx, carID)
	}
	return Upserted, st.Upsert(ctx, Build(*car, now))
}

// find maps NotFound to a nil car.
func find(ctx context.Context, f Finder, carID string) (*yard.Car, error) {
	car, err := f.Find(ctx, carID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return car, err
}

func sameSnapshot(a, b *yard.Car) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UpdatedAt.Equal(b.UpdatedAt) &&
		a.Publication == b.Publication &&
		a.Sale == b.Sale &&
		a.Promotion.Equal(b.Promotion)
}
