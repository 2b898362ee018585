package main

import (
	"context"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/config"
	"github.com/ariefcatur/go-yard-listings/internal/logging"
	"github.com/ariefcatur/go-yard-listings/internal/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("listing-migrate", "info", false)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.ServiceName+"-migrate", cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	log.Info().Msg("migrations applied")
}

func run(ctx context.Context, dsn string) error {
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.Migrate(ctx, db)
}
