package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStatsRefreshTask creates the scheduled task that reloads the cached
// application state from the store.
func newStatsRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "stats_refresh")

	return func(ctx context.Context) error {
		startTime := time.Now()

		if err := deps.State.Refresh(ctx); err != nil {
			log.ErrorContext(ctx, "State refresh failed", "error", err)
			return fmt.Errorf("state refresh failed: %w", err)
		}

		log.DebugContext(ctx, "State refreshed", "duration", time.Since(startTime))
		return nil
	}
}
