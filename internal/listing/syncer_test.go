package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	kafkax "github.com/ariefcatur/go-yard-listings/internal/kafka"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"pgregory.net/rapid"
)

func changeMessage(eventID, carID string) kafkago.Message {
	env := yard.Envelope{
		EventID:      eventID,
		EventType:    yard.EventCarChanged,
		EventVersion: 1,
		OccurredAt:   t0,
		Payload:      kafkax.MustMarshal(yard.ChangeNotification{OwnerID: "yard-1", CarID: carID, ExistsAfter: true}),
	}
	return kafkago.Message{Key: yard.PartitionKey(carID), Value: kafkax.MustMarshal(env)}
}

func TestHandleMessage_SyncsAndDedups(t *testing.T) {
	m := newFakeMaster(publishedCar("car-1"))
	s, st, rdb := newSyncer(t, m)
	ctx := context.Background()

	require.NoError(t, s.HandleMessage(ctx, changeMessage("ev-1", "car-1")))
	_, err := st.Get(ctx, "car-1")
	require.NoError(t, err)
	// one read to build, one to confirm MASTER held still
	assert.EqualValues(t, 2, m.finds.Load())

	seen, err := redisx.Exists(ctx, rdb, "dedup:projector:ev-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.HandleMessage(ctx, changeMessage("ev-1", "car-1")))
	assert.EqualValues(t, 2, m.finds.Load(), "redelivery must be skipped")

	require.NoError(t, s.HandleMessage(ctx, changeMessage("ev-2", "car-1")))
	assert.EqualValues(t, 4, m.finds.Load())
}

func TestHandleMessage_FailureLeavesNoDedupMark(t *testing.T) {
	m := newFakeMaster(publishedCar("car-1"))
	m.err = apperr.Wrap(apperr.ErrTransient, errors.New("timeout"), "find")
	s, _, rdb := newSyncer(t, m)
	ctx := context.Background()

	require.NoError(t, s.HandleMessage(ctx, changeMessage("ev-1", "car-1")))

	seen, err := redisx.Exists(ctx, rdb, "dedup:projector:ev-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestHandleMessage_SkipsPoisonAndForeignEvents(t *testing.T) {
	m := newFakeMaster(publishedCar("car-1"))
	s, _, _ := newSyncer(t, m)
	ctx := context.Background()

	require.NoError(t, s.HandleMessage(ctx, kafkago.Message{Value: []byte("{not json")}))

	foreign := yard.Envelope{EventID: "x", EventType: "OrderCreated", Payload: []byte(`{}`)}
	require.NoError(t, s.HandleMessage(ctx, kafkago.Message{Value: kafkax.MustMarshal(foreign)}))

	noCar := yard.Envelope{EventID: "y", EventType: yard.EventCarChanged, Payload: []byte(`{"owner_id":"yard-1"}`)}
	require.NoError(t, s.HandleMessage(ctx, kafkago.Message{Value: kafkax.MustMarshal(noCar)}))

	assert.Zero(t, m.finds.Load())
}

// After any interleaving of MASTER writes and replayed notifications, one
// final sync leaves a projection iff the car is listable.
func TestSync_ExistenceInvariantProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mr, rdb := newRedisRapid(rt)
		defer mr.Close()
		defer rdb.Close()

		m := newFakeMaster()
		s := &Syncer{Master: m, Store: NewRedisStore(rdb), Now: func() time.Time { return t0 }}
		ctx := context.Background()

		ids := []string{"a", "b", "c"}
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				c := publishedCar(id)
				c.Publication = rapid.SampledFrom([]yard.PublicationState{yard.Draft, yard.Published, yard.Archived}).Draw(rt, "pub")
				c.Sale = rapid.SampledFrom([]yard.SaleState{yard.Active, yard.Sold}).Draw(rt, "sale")
				m.put(c)
			case 1:
				m.remove(id)
			default:
				_, _ = s.Sync(ctx, id, "test")
			}
		}
		for _, id := range ids {
			_, err := s.Sync(ctx, id, "test")
			require.NoError(rt, err)

			car, ferr := m.Find(ctx, id)
			_, gerr := s.Store.Get(ctx, id)
			if ferr == nil && car.Listable() {
				require.NoError(rt, gerr)
			} else {
				require.ErrorIs(rt, gerr, apperr.ErrNotFound)
			}
		}
	})
}

func TestSweeper_HealsMissingAndOrphanProjections(t *testing.T) {
	missing := publishedCar("car-missing")
	draft := publishedCar("car-draft")
	draft.Publication = yard.Draft
	m := newFakeMaster(missing, draft)
	s, st, _ := newSyncer(t, m)
	ctx := context.Background()

	// stale projections for a draft car and a car that no longer exists
	require.NoError(t, st.Upsert(ctx, Build(publishedCar("car-draft"), t0)))
	require.NoError(t, st.Upsert(ctx, Build(publishedCar("car-orphan"), t0)))

	sw := &Sweeper{
		Syncer:      s,
		Master:      m,
		Store:       st,
		PageSize:    1,
		Concurrency: 2,
		Limiter:     rate.NewLimiter(rate.Inf, 1),
	}
	stats, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)

	_, err = st.Get(ctx, "car-missing")
	assert.NoError(t, err)
	_, err = st.Get(ctx, "car-draft")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = st.Get(ctx, "car-orphan")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSweeper_RemovesEveryOrphanAcrossPages(t *testing.T) {
	m := newFakeMaster()
	s, st, _ := newSyncer(t, m)
	ctx := context.Background()

	for _, id := range []string{"car-a", "car-b", "car-c", "car-d", "car-e"} {
		require.NoError(t, st.Upsert(ctx, Build(publishedCar(id), t0)))
	}
	sw := &Sweeper{Syncer: s, Master: m, Store: st, PageSize: 1, Concurrency: 1}
	_, err := sw.RunOnce(ctx)
	require.NoError(t, err)

	keys, err := st.ListKeys(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, keys, "deletes must not make the pass skip entries")
}

func TestSweeper_CountsFailures(t *testing.T) {
	m := newFakeMaster(publishedCar("car-1"))
	s, st, _ := newSyncer(t, m)
	sw := &Sweeper{Syncer: s, Master: m, Store: st, Concurrency: 1}

	m.err = apperr.Wrap(apperr.ErrTransient, errors.New("down"), "find")
	// ListKeys still answers, every Find fails
	stats, err := sw.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Failed)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	m := newFakeMaster(publishedCar("car-1"))
	s, st, _ := newSyncer(t, m)
	sw := &Sweeper{Syncer: s, Master: m, Store: st}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx, time.Hour)
		close(done)
	}()
	require.Eventually(t, func() bool {
		_, err := st.Get(context.Background(), "car-1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
