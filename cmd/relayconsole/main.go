// Package main contains the entrypoint for the relay console application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amsaid/relayconsole/internal/bot"
	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
	"github.com/amsaid/relayconsole/internal/logger"
	"github.com/amsaid/relayconsole/internal/state"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, state cache, wizard, orchestrator), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)
	log.Info("Logger initialized", "level", cfg.LogLevel, "json", cfg.LogJSON)

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.DBPath, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	st := state.New(store, log)
	if err := st.Initialize(ctx); err != nil {
		log.Error("Failed to initialize application state", "error", err)
		return 1
	}

	wizard, err := install.New(ctx, store, cfg, log)
	if err != nil {
		log.Error("Failed to initialize installation wizard", "error", err)
		return 1
	}

	app, err := bot.NewApp(log, cfg, store, st, wizard)
	if err != nil {
		log.Error("Failed to wire application", "error", err)
		return 1
	}

	log.Info("Starting relay console...")
	runErr := app.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Application stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Application stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
