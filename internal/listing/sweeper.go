package listing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sweeper re-syncs every car on a schedule so that lost or failed
// notifications eventually heal. The master pass covers every MASTER
// record; the orphan pass covers projections whose MASTER row is gone.
type Sweeper struct {
	Syncer      *Syncer
	Master      Master
	Store       Store
	PageSize    int
	Concurrency int
	Limiter     *rate.Limiter
	Log         zerolog.Logger
}

// Stats summarises one sweep.
type Stats struct {
	Upserted int64
	Deleted  int64
	Failed   int64
}

func (s *Sweeper) pageSize() int {
	if s.PageSize <= 0 {
		return 500
	}
	return s.PageSize
}

// RunOnce sweeps every MASTER record, then every projected id. Individual
// sync failures are counted, not returned; a failure to page is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.masterPass(ctx, &st); err != nil {
		return st, err
	}
	if err := s.orphanPass(ctx, &st); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Sweeper) masterPass(ctx context.Context, st *Stats) error {
	after := ""
	for {
		keys, err := s.Master.ListKeys(ctx, after, s.pageSize())
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = k.CarID
		}
		if err := s.syncAll(ctx, ids, st); err != nil {
			return err
		}
		after = keys[len(keys)-1].CarID
	}
}

func (s *Sweeper) orphanPass(ctx context.Context, st *Stats) error {
	// Deletes shift later zset offsets, so collect every id before syncing any.
	var ids []string
	for offset := 0; ; offset += s.pageSize() {
		keys, err := s.Store.ListKeys(ctx, offset, s.pageSize())
		if err != nil {
			return err
		}
		for _, k := range keys {
			ids = append(ids, k.CarID)
		}
		if len(keys) < s.pageSize() {
			break
		}
	}
	for len(ids) > 0 {
		n := min(len(ids), s.pageSize())
		if err := s.syncAll(ctx, ids[:n], st); err != nil {
			return err
		}
		ids = ids[n:]
	}
	return nil
}

func (s *Sweeper) syncAll(ctx context.Context, ids []string, st *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))
	for _, id := range ids {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(gctx); err != nil {
				_ = g.Wait()
				return err
			}
		}
		g.Go(func() error {
			out, err := s.Syncer.Sync(gctx, id, metrics.SourceSweep)
			switch {
			case err != nil:
				atomic.AddInt64(&st.Failed, 1)
				s.Log.Warn().Err(err).Str("car_id", id).Msg("sweep sync failed")
			case out == Upserted:
				atomic.AddInt64(&st.Upserted, 1)
			default:
				atomic.AddInt64(&st.Deleted, 1)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run sweeps once immediately and then every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		start := time.Now()
		st, err := s.RunOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			metrics.SweepRuns.WithLabelValues("error").Inc()
			s.Log.Error().Err(err).Msg("sweep aborted")
		default:
			metrics.SweepRuns.WithLabelValues("ok").Inc()
			s.Log.Info().Int64("upserted", st.Upserted).Int64("deleted", st.Deleted).
				Int64("failed", st.Failed).Dur("took", time.Since(start)).Msg("sweep done")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
