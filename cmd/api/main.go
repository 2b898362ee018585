package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/catalog"
	"github.com/ariefcatur/go-yard-listings/internal/config"
	"github.com/ariefcatur/go-yard-listings/internal/httpx"
	kafkax "github.com/ariefcatur/go-yard-listings/internal/kafka"
	"github.com/ariefcatur/go-yard-listings/internal/listing"
	"github.com/ariefcatur/go-yard-listings/internal/logging"
	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/ariefcatur/go-yard-listings/internal/purchase"
	"github.com/ariefcatur/go-yard-listings/internal/receipts"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/ariefcatur/go-yard-listings/internal/tracing"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("listing-api", "info", false)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for change notifications
	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.ChangeTopic, 1024, log)
	prod.Start(ctx)

	cars := yard.NewStore(&yard.Repo{DB: db}, &yard.EventNotifier{Publisher: prod, Service: cfg.ServiceName}, log)
	projection := listing.NewRedisStore(rdb)
	recorder := &receipts.PostgresRecorder{DB: db}
	purchases := &purchase.Service{
		Cars:       cars,
		Catalog:    catalog.NewCachedCatalog(&catalog.PostgresCatalog{DB: db}, rdb, cfg.CatalogCacheTTL, log),
		Projection: projection,
		Receipts:   recorder,
		Log:        log.With().Str("component", "purchase").Logger(),
	}

	router := routes(cars, purchases, projection, recorder, log)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	// Handlers still running past the deadline publish into a closed
	// producer; those notifications are dropped and left to the sweep.
	prod.Close()
	cancel()
	prod.WaitClosed()
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
}

func routes(cars httpx.CarService, p httpx.Purchaser, projection listing.Store, audit httpx.ReceiptLister, log zerolog.Logger) http.Handler {
	router := httpx.NewRouter()
	(&httpx.CarsHandler{Cars: cars, Log: log}).Register(router)
	(&httpx.PromotionsHandler{Purchases: p, Log: log}).Register(router)
	(&httpx.ListingsHandler{Store: projection, Log: log}).Register(router)
	(&httpx.ReceiptsHandler{Receipts: audit, Log: log}).Register(router)
	return router
}
