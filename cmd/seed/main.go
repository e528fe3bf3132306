// Command seed populates the marketplace database with sellers and products
// for local development. It applies the embedded migrations first, so it can
// run against an empty database. Rows are upserted and reruns are safe.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/config"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/migrations"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("marketplace-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		log.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sellers, products := catalog()
	if err := seedCatalog(ctx, pool, sellers, products, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.Int("sellers", len(sellers)),
		slog.Int("products", len(products)),
	)
}
