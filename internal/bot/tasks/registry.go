package tasks

import "context"

// ScheduledTaskFunc defines the standard signature for all scheduled
// tasks. The context provided by the scheduler should be respected for
// cancellation. Returning an error lets the scheduler log failures.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns a map of all registered
// scheduled tasks. The keys are identifiers used for schedule lookup
// and logging.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["stats_refresh"] = newStatsRefreshTask(deps)
	tasks["admin_sync"] = newAdminSyncTask(deps)
	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
