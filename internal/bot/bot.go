// Package bot orchestrates the relay console components: the HTTP API,
// the Telegram relay client, and the task scheduler. It owns the relay
// lifecycle, starting it at boot when a bot config exists or later when
// the installation wizard completes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/amsaid/relayconsole/internal/bot/tasks"
	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
	"github.com/amsaid/relayconsole/internal/relay"
	"github.com/amsaid/relayconsole/internal/server"
	"github.com/amsaid/relayconsole/internal/state"
)

// App represents the console application and manages its components'
// lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	state     *state.State
	wizard    *install.Wizard
	srv       *server.Server
	scheduler *Scheduler

	mu          sync.Mutex
	relayClient *relay.Client
	group       *errgroup.Group
	groupCtx    context.Context
}

// NewApp wires the application together from its core dependencies. The
// HTTP server and scheduler are composed here since both need access to
// the relay accessor the app owns.
func NewApp(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	st *state.State,
	wizard *install.Wizard,
) (*App, error) {
	a := &App{
		logger: logger.With("component", "orchestrator"),
		cfg:    cfg,
		store:  store,
		state:  st,
		wizard: wizard,
	}

	a.srv = server.New(cfg, server.Deps{
		Store:  store,
		State:  st,
		Wizard: wizard,
		Relay:  a.serverRelay,
		Logger: logger,
	})

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: logger,
		Store:  store,
		Config: cfg,
		State:  st,
		Relay:  a.taskRelay,
	})
	scheduler, err := NewScheduler(logger, map[string]string{
		"stats_refresh":   cfg.SchedStatsRefresh,
		"admin_sync":      cfg.SchedAdminSync,
		"sql_maintenance": cfg.SchedSQLMaintenance,
	}, taskMap)
	if err != nil {
		return nil, err
	}
	a.scheduler = scheduler

	wizard.OnComplete(a.onInstallComplete)

	return a, nil
}

// serverRelay hands the HTTP layer the current relay client. The nil
// check happens here so the interface value is a true nil, not a typed
// nil wrapping a nil pointer.
func (a *App) serverRelay() server.Relay {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.relayClient == nil {
		return nil
	}
	return a.relayClient
}

func (a *App) taskRelay() tasks.AdminSyncer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.relayClient == nil {
		return nil
	}
	return a.relayClient
}

// onInstallComplete starts the relay as soon as the wizard persists a
// bot config, without requiring a process restart.
func (a *App) onInstallComplete(ctx context.Context, cfg *database.BotConfig) {
	a.state.SetBotConfig(cfg)
	if err := a.state.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "State refresh after installation failed", "error", err)
	}
	if err := a.startRelay(cfg); err != nil {
		a.logger.ErrorContext(ctx, "Failed to start relay after installation", "error", err)
	}
}

// startRelay builds the relay client from a bot config and launches its
// polling loop in the run group. A relay that is already running stays.
func (a *App) startRelay(cfg *database.BotConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.relayClient != nil {
		a.logger.Info("Relay already running, new config takes effect on restart")
		return nil
	}
	if a.group == nil {
		return fmt.Errorf("cannot start relay before the application runs")
	}

	client, err := relay.New(cfg, a.store, a.logger, relay.Options{
		APIURL:      a.cfg.RelayAPIURL,
		SendTimeout: a.cfg.RelaySendTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create relay client: %w", err)
	}

	a.relayClient = client
	gCtx := a.groupCtx
	a.group.Go(func() error {
		client.Start(gCtx)
		if gCtx.Err() == nil {
			return fmt.Errorf("relay listener stopped unexpectedly")
		}
		return nil
	})

	return nil
}

// Run starts all components and blocks until the context is cancelled or
// a component fails. Shutdown is graceful: the HTTP server drains and
// the scheduler waits for running jobs.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)
	a.mu.Lock()
	a.group = g
	a.groupCtx = gCtx
	a.mu.Unlock()

	g.Go(func() error {
		if err := a.srv.Run(gCtx); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	// A config persisted in an earlier run starts the relay at boot.
	if snapshot := a.state.Snapshot(); snapshot.BotConfig != nil {
		if err := a.startRelay(snapshot.BotConfig); err != nil {
			return err
		}
	}

	a.logger.Info("Orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
