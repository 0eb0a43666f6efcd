// Command eventlogd runs the local event-log server: a small stand-in
// for the hosted ingest function so the pipeline and the trace tooling
// can run entirely on a developer machine.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/securewatch/traceguard/internal/config"
	"github.com/securewatch/traceguard/internal/ingest"
	"github.com/securewatch/traceguard/internal/ports"
	"github.com/securewatch/traceguard/internal/server"
	"github.com/securewatch/traceguard/internal/storage/memory"
	"github.com/securewatch/traceguard/internal/storage/sqldb"
	"github.com/securewatch/traceguard/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init("eventlogd", logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	var store ports.EventStore
	if cfg.Store.Driver == "memory" {
		store = memory.New()
	} else {
		store, err = sqldb.New(sqldb.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN})
		if err != nil {
			log.Fatalf("Failed to open event store: %v", err)
		}
	}
	defer store.Close()

	handler := ingest.NewHandler(store, logger)

	srv := server.New(cfg.Server.Port, logger)
	srv.Router.Mount("/", handler.Routes(cfg.LogFunction.ServiceKey))
	srv.Start()

	logger.Info("eventlogd started",
		slog.String("store", cfg.Store.Driver),
		slog.Int("port", cfg.Server.Port),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("eventlogd shutdown complete")
}
