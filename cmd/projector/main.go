package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-yard-listings/internal/config"
	kafkax "github.com/ariefcatur/go-yard-listings/internal/kafka"
	"github.com/ariefcatur/go-yard-listings/internal/listing"
	"github.com/ariefcatur/go-yard-listings/internal/logging"
	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/ariefcatur/go-yard-listings/internal/tracing"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("listing-projector", "info", false)
		boot.Fatal().Err(err).Msg("config")
	}
	service := cfg.ServiceName + "-projector"
	log := logging.New(service, cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, service, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing")
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Read-only use of MASTER: no notifier.
	master := yard.NewStore(&yard.Repo{DB: db}, nil, log)
	store := listing.NewRedisStore(rdb)
	syncer := &listing.Syncer{
		Master:   master,
		Store:    store,
		Redis:    rdb,
		DedupTTL: cfg.DedupTTL,
		Service:  service,
		Log:      log.With().Str("component", "syncer").Logger(),
	}
	sweeper := newSweeper(cfg, syncer, master, store, log)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, cfg.ChangeTopic, cfg.ProjectorWorker, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		log.Info().Str("group", cfg.ProjectorGroup).Str("topic", cfg.ChangeTopic).
			Int("workers", cfg.ProjectorWorker).Msg("projector consumer started")
		if err := cons.Start(ctx, syncer.HandleMessage); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx, cfg.SweepInterval)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info().Msg("shutting down projector")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
	if err := shutdownTracing(context.Background()); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
}

func newSweeper(cfg config.Config, syncer *listing.Syncer, master listing.Master, store listing.Store, log zerolog.Logger) *listing.Sweeper {
	return &listing.Sweeper{
		Syncer:      syncer,
		Master:      master,
		Store:       store,
		PageSize:    cfg.SweepPageSize,
		Concurrency: cfg.SweepConcurrency,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.SweepRate), max(cfg.SweepConcurrency, 1)),
		Log:         log.With().Str("component", "sweeper").Logger(),
	}
}
