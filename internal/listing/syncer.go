package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-yard-listings/internal/kafka"
	"github.com/ariefcatur/go-yard-listings/internal/metrics"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Master is the read side of the MASTER store; *yard.Store implements it.
type Master interface {
	Find(ctx context.Context, carID string) (*yard.Car, error)
	ListKeys(ctx context.Context, afterID string, limit int) ([]yard.Key, error)
}

// Outcome is the projection state a sync converged to.
type Outcome int

const (
	Deleted Outcome = iota
	Upserted
)

func (o Outcome) String() string {
	if o == Upserted {
		return "upserted"
	}
	return "deleted"
}

// Syncer rebuilds a car's projection from the current MASTER record. It never
// trusts notification payloads and never validates business rules, so
// replaying any notification any number of times in any order converges.
// Concurrent runs for one car are settled by Reconcile.
type Syncer struct {
	Master Master
	Store  Store

	// Redis and DedupTTL enable skipping exact redeliveries; both optional.
	Redis    redis.Cmdable
	DedupTTL time.Duration

	Service string
	Log     zerolog.Logger
	Now     func() time.Time
}

var tracer = otel.Tracer("github.com/ariefcatur/go-yard-listings/internal/listing")

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Sync drives the projection of carID to its target state.
func (s *Syncer) Sync(ctx context.Context, carID, source string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "listing.Sync")
	defer span.End()
	span.SetAttributes(attribute.String("car.id", carID), attribute.String("source", source))
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	out, err := s.sync(ctx, carID)
	if err != nil {
		metrics.ProjectionOps.WithLabelValues(metrics.OpFailure, source).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	op := metrics.OpDelete
	if out == Upserted {
		op = metrics.OpUpsert
	}
	metrics.ProjectionOps.WithLabelValues(op, source).Inc()
	span.SetAttributes(attribute.String("outcome", out.String()))
	return out, nil
}

func (s *Syncer) sync(ctx context.Context, carID string) (Outcome, error) {
	car, err := find(ctx, s.Master, carID)
	if err != nil {
		return Deleted, err
	}
	return Reconcile(ctx, s.Master, s.Store, carID, car, s.now())
}

// HandleChange syncs after a change notification. Failures are logged and
// dropped; the reconciliation sweep repairs the projection later.
func (s *Syncer) HandleChange(ctx context.Context, n yard.ChangeNotification) {
	out, err := s.Sync(ctx, n.CarID, metrics.SourceNotification)
	if err != nil {
		s.Log.Error().Err(err).Str("car_id", n.CarID).Str("owner_id", n.OwnerID).Msg("projection sync failed")
		return
	}
	s.Log.Debug().Str("car_id", n.CarID).Stringer("outcome", out).Msg("projection synced")
}

// HandleMessage is the kafka consumer handler. It only returns an error when
// the message should be redelivered, which never happens: undecodable
// messages are poison and sync failures are left to the sweep.
func (s *Syncer) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env yard.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		metrics.NotificationsSkipped.WithLabelValues("undecodable").Inc()
		s.Log.Warn().Err(err).Int64("offset", m.Offset).Msg("skip undecodable envelope")
		return nil
	}
	if env.EventType != yard.EventCarChanged {
		metrics.NotificationsSkipped.WithLabelValues("event_type").Inc()
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.Service, env.EventID)
	if s.Redis != nil && env.EventID != "" {
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			metrics.NotificationsSkipped.WithLabelValues("duplicate").Inc()
			return nil
		}
	}

	n, err := kafkax.UnwrapPayload[yard.ChangeNotification](env.Payload)
	if err != nil || n.CarID == "" {
		metrics.NotificationsSkipped.WithLabelValues("undecodable").Inc()
		s.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("skip notification without car id")
		return nil
	}

	if _, err := s.Sync(ctx, n.CarID, metrics.SourceNotification); err != nil {
		s.Log.Error().Err(err).Str("car_id", n.CarID).Str("event_id", env.EventID).Msg("projection sync failed")
		return nil
	}
	if s.Redis != nil && env.EventID != "" {
		ttl := s.DedupTTL
		if ttl <= 0 {
			ttl = redisx.TTLDedup
		}
		if err := s.Redis.Set(ctx, dkey, "1", ttl).Err(); err != nil {
			s.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup mark failed")
		}
	}
	return nil
}
