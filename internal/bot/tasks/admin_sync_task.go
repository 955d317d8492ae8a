package tasks

import (
	"context"
	"fmt"
	"time"
)

// newAdminSyncTask creates the scheduled task that refreshes the admin
// roster of the watched source group. It is a no-op until the bot is
// installed and the relay is running.
func newAdminSyncTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "admin_sync")

	return func(ctx context.Context) error {
		client := deps.Relay()
		if client == nil {
			log.DebugContext(ctx, "Relay not running, skipping admin sync")
			return nil
		}

		snapshot := deps.State.Snapshot()
		if snapshot.BotConfig == nil || snapshot.BotConfig.SourceGroup == "" {
			log.DebugContext(ctx, "No source group configured, skipping admin sync")
			return nil
		}

		startTime := time.Now()
		saved, err := client.SyncAdmins(ctx, snapshot.BotConfig.SourceGroup)
		if err != nil {
			log.ErrorContext(ctx, "Admin sync failed", "error", err)
			return fmt.Errorf("admin sync failed: %w", err)
		}

		log.InfoContext(ctx, "Admin sync completed", "saved", saved, "duration", time.Since(startTime))
		return nil
	}
}
