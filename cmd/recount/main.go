// Recount binary: one-shot repair that rebuilds every poll's denormalized
// counters from the vote ledger. The ledger is always authoritative; run this
// whenever the projections are suspected to have diverged.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ArthurKelvin/polling-app/internal/platform/config"
	"github.com/ArthurKelvin/polling-app/internal/platform/logger"
	"github.com/ArthurKelvin/polling-app/internal/platform/migrations"
	postgresstorage "github.com/ArthurKelvin/polling-app/internal/platform/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("retrieving sql.DB failed", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	pollRepo := postgresstorage.NewPollRepository(db)
	ledger := postgresstorage.NewVoteLedger(db)

	pollIDs, err := pollRepo.ListIDs(ctx)
	if err != nil {
		logger.Fatal("listing polls failed", "err", err)
	}

	var failed int
	for _, id := range pollIDs {
		if err := ledger.Recount(ctx, id); err != nil {
			logger.Error("recount failed", "poll", id, "err", err)
			failed++
			continue
		}
		logger.Info("recounted", "poll", id)
	}

	if failed > 0 {
		logger.Fatal("recount finished with failures", "failed", failed, "total", len(pollIDs))
	}
	logger.Info("recount finished", "total", len(pollIDs))
}
