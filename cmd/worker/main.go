package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmoreno/storefront-checkout/internal/stock"
	"github.com/nmoreno/storefront-checkout/pkg/config"
	"github.com/nmoreno/storefront-checkout/pkg/db"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/migrate"
)

const purgeInterval = time.Minute

// The worker sweeps expired stock reservations out of the database. Expiry
// is already enforced lazily at read time; the sweep keeps the table small.
func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	repo := stock.NewRepository(dbClient.DB())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting reservation sweeper")

	if err := run(ctx, repo, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reservation sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reservation sweeper shutting down gracefully")
}

func run(ctx context.Context, repo stock.Repository, logg *logger.Logger) error {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			purged, err := repo.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				logg.Error(ctx, "failed to purge expired reservations", err)
				continue
			}
			if purged > 0 {
				logg.Info(logg.WithField(ctx, "purged", purged), "purged expired reservations")
			}
		}
	}
}
