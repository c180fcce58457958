package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"stocktrack/internal/amqp"
	"stocktrack/internal/cli"
	apphttp "stocktrack/internal/http"
	applog "stocktrack/internal/log"
	"stocktrack/internal/reports"
	"stocktrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// AMQP is optional: without it entries stay pending in SQLite until a
	// worker with a broker connection drains them.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without sync publishing", "error", err)
		amqpClient = nil
	} else {
		defer amqpClient.Close()
	}

	tracker := services.NewTrackerService(sqliteRepo, amqpClient, cfg.GlobalNames())
	engine := reports.NewEngine(tracker)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, engine, cfg.DefaultUser)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting stocktrack server", "port", cfg.Port, "name_scope", cfg.StockNameScope)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
