package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"stocktrack/internal/cli"
	"stocktrack/internal/core"
	applog "stocktrack/internal/log"
	"stocktrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting materialize-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// No AMQP client: materializing day rows never touches the sync queue.
	tracker := services.NewTrackerService(sqliteRepo, nil, cfg.GlobalNames())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Day materializer configured",
		"interval", cfg.MaterializeInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run once on startup so a fresh month is usable immediately.
	materializeCurrentMonth(ctx, tracker, logger)

	ticker := time.NewTicker(cfg.MaterializeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Materialize-worker shutdown complete")
			return
		case <-ticker.C:
			materializeCurrentMonth(ctx, tracker, logger)
		}
	}
}

// materializeCurrentMonth ensures every known user has the current
// month's day rows in place. Users created after this pass get their
// rows lazily on first page view.
func materializeCurrentMonth(ctx context.Context, tracker *services.TrackerService, logger *slog.Logger) {
	users, err := tracker.ListUsers(ctx)
	if err != nil {
		logger.Error("Failed to list users", "error", err)
		return
	}

	period := core.CurrentPeriod(time.Now())
	materialized := 0

	for _, u := range users {
		month, err := tracker.ResolveMonth(ctx, u.ID, period)
		if err != nil {
			logger.Error("Failed to resolve month", "error", err, "user", u.Name)
			continue
		}
		if _, err := tracker.EnsureDays(ctx, month); err != nil {
			logger.Error("Failed to materialize days", "error", err, "user", u.Name)
			continue
		}
		materialized++
	}

	logger.Info("Materialize pass complete",
		"period", period.String(),
		"users", len(users),
		"materialized", materialized)
}
