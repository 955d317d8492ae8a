package install_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func testConfig() *config.Config {
	return &config.Config{
		InstallMsgDBError:      "db error",
		InstallMsgConfigError:  "config error",
		InstallMsgStepOrder:    "step order",
		InstallMsgTokenMissing: "token missing",
		InstallMsgComplete:     "complete",
	}
}

func TestWizardHappyPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	w, err := install.New(ctx, store, testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var completedWith *database.BotConfig
	w.OnComplete(func(_ context.Context, cfg *database.BotConfig) {
		completedWith = cfg
	})

	if got := w.Status(); got.Step != install.StepDatabase || got.Installed {
		t.Fatalf("expected fresh wizard at database step, got %+v", got)
	}

	status := w.CheckDatabase(ctx)
	if status.Step != install.StepBotConfig || status.Error != "" {
		t.Fatalf("expected advance to bot_config, got %+v", status)
	}

	status = w.SubmitForm(ctx, install.Form{Token: "tok", SourceGroup: "111", TargetGroup: "222"})
	if status.Step != install.StepConfirm || status.Error != "" {
		t.Fatalf("expected advance to confirm, got %+v", status)
	}

	status = w.Complete(ctx)
	if status.Step != install.StepComplete || !status.Installed || status.Error != "" {
		t.Fatalf("expected completion, got %+v", status)
	}
	if completedWith == nil || completedWith.Token != "tok" {
		t.Fatalf("expected completion hook with persisted config, got %+v", completedWith)
	}

	// Exactly one config record must exist.
	configs, err := store.ListBotConfigs(ctx)
	if err != nil {
		t.Fatalf("ListBotConfigs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected exactly 1 config, got %d", len(configs))
	}
	if !configs[0].IsActive {
		t.Error("expected the installed config to be active")
	}
}

func TestWizardRejectsSkippedSteps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	w, err := install.New(ctx, store, testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Submitting the form before the database check keeps the wizard put.
	status := w.SubmitForm(ctx, install.Form{Token: "tok", SourceGroup: "1", TargetGroup: "2"})
	if status.Step != install.StepDatabase || status.Error == "" {
		t.Fatalf("expected rejection with step order error, got %+v", status)
	}

	status = w.Complete(ctx)
	if status.Step != install.StepDatabase || status.Error == "" {
		t.Fatalf("expected rejection with step order error, got %+v", status)
	}

	configs, err := store.ListBotConfigs(ctx)
	if err != nil {
		t.Fatalf("ListBotConfigs: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("expected no persisted config, got %d", len(configs))
	}
}

func TestWizardInvalidFormKeepsStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	cfg := testConfig()

	w, err := install.New(ctx, store, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.CheckDatabase(ctx)

	status := w.SubmitForm(ctx, install.Form{SourceGroup: "1", TargetGroup: "2"})
	if status.Step != install.StepBotConfig {
		t.Fatalf("expected wizard to stay at bot_config, got %+v", status)
	}
	if status.Error != cfg.InstallMsgTokenMissing {
		t.Errorf("expected token missing message, got %q", status.Error)
	}

	// A later valid submission succeeds and clears the error.
	status = w.SubmitForm(ctx, install.Form{Token: "tok", SourceGroup: "1", TargetGroup: "2"})
	if status.Step != install.StepConfirm || status.Error != "" {
		t.Fatalf("expected recovery to confirm step, got %+v", status)
	}
}

func TestWizardStartsCompletedWhenConfigExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	cfg := &database.BotConfig{Token: "tok", SourceGroup: "1", TargetGroup: "2"}
	if err := store.SaveBotConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveBotConfig: %v", err)
	}

	w, err := install.New(ctx, store, testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	status := w.Status()
	if status.Step != install.StepComplete || !status.Installed {
		t.Fatalf("expected completed wizard, got %+v", status)
	}
}
