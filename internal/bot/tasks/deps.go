// Package tasks implements the scheduled background tasks of the relay
// console: state refresh, admin roster sync, and database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/state"
)

// AdminSyncer is the slice of the relay client the admin sync task needs.
type AdminSyncer interface {
	SyncAdmins(ctx context.Context, chatID string) (int, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	State  *state.State

	// Relay returns the current relay client or nil while the bot is
	// not installed. Tasks needing it skip quietly when nil.
	Relay func() AdminSyncer
}
