// Package install implements the first-run installation wizard: a strict
// three-step state machine that verifies the database, collects the bot
// config, and persists exactly one config record on completion.
package install

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
)

// Step identifies a wizard stage. Steps advance strictly in order; a
// failed step keeps the wizard where it is.
type Step int

const (
	StepDatabase Step = iota
	StepBotConfig
	StepConfirm
	StepComplete
)

// String returns the wire name of a step.
func (s Step) String() string {
	switch s {
	case StepDatabase:
		return "database"
	case StepBotConfig:
		return "bot_config"
	case StepConfirm:
		return "confirm"
	case StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Form carries the bot settings collected in the second step.
type Form struct {
	Token       string `json:"token"       validate:"required"`
	SourceGroup string `json:"sourceGroup" validate:"required"`
	TargetGroup string `json:"targetGroup" validate:"required"`
}

// Status is the wizard view returned to the console after every action.
type Status struct {
	Step      Step   `json:"step"`
	StepName  string `json:"stepName"`
	Installed bool   `json:"installed"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Wizard drives the installation flow. Safe for concurrent use; the
// console may poll status while a step runs.
type Wizard struct {
	store    database.Store
	cfg      *config.Config
	logger   *slog.Logger
	validate *validator.Validate

	// onComplete, when set, runs after the config record is persisted.
	// The orchestrator uses it to start the relay without restarting.
	onComplete func(ctx context.Context, cfg *database.BotConfig)

	mu      sync.Mutex
	step    Step
	form    *Form
	lastErr string
}

// New creates a Wizard. If the store already holds a bot config the
// wizard starts in the completed state.
func New(ctx context.Context, store database.Store, cfg *config.Config, log *slog.Logger) (*Wizard, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Wizard{
		store:    store,
		cfg:      cfg,
		logger:   log.With("component", "install"),
		validate: validator.New(),
	}

	existing, err := store.GetBotConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("install wizard: %w", err)
	}
	if existing != nil {
		w.step = StepComplete
	}
	return w, nil
}

// OnComplete registers the completion hook.
func (w *Wizard) OnComplete(fn func(ctx context.Context, cfg *database.BotConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onComplete = fn
}

// Status returns the current wizard state.
func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

func (w *Wizard) statusLocked() Status {
	s := Status{
		Step:      w.step,
		StepName:  w.step.String(),
		Installed: w.step == StepComplete,
		Error:     w.lastErr,
	}
	if s.Installed {
		s.Message = w.cfg.InstallMsgComplete
	}
	return s
}

// CheckDatabase runs the first step: verify the store connection. On
// success the wizard advances to the bot config step.
func (w *Wizard) CheckDatabase(ctx context.Context) Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepDatabase {
		w.lastErr = w.cfg.InstallMsgStepOrder
		return w.statusLocked()
	}

	if err := w.store.Ping(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Database check failed", "error", err)
		w.lastErr = w.cfg.InstallMsgDBError
		return w.statusLocked()
	}

	w.step = StepBotConfig
	w.lastErr = ""
	w.logger.InfoContext(ctx, "Database check passed")
	return w.statusLocked()
}

// SubmitForm runs the second step: validate and stage the bot settings.
// Nothing is persisted until Complete.
func (w *Wizard) SubmitForm(ctx context.Context, form Form) Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepBotConfig {
		w.lastErr = w.cfg.InstallMsgStepOrder
		return w.statusLocked()
	}

	if err := w.validate.Struct(form); err != nil {
		w.logger.WarnContext(ctx, "Bot config form rejected", "error", err)
		if form.Token == "" {
			w.lastErr = w.cfg.InstallMsgTokenMissing
		} else {
			w.lastErr = w.cfg.InstallMsgConfigError
		}
		return w.statusLocked()
	}

	w.form = &form
	w.step = StepConfirm
	w.lastErr = ""
	return w.statusLocked()
}

// Complete runs the final step: persist the staged form as the single
// bot config record and fire the completion hook. A store failure keeps
// the wizard at the confirm step so the user can retry.
func (w *Wizard) Complete(ctx context.Context) Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepConfirm {
		w.lastErr = w.cfg.InstallMsgStepOrder
		return w.statusLocked()
	}

	record := &database.BotConfig{
		Token:       w.form.Token,
		SourceGroup: w.form.SourceGroup,
		TargetGroup: w.form.TargetGroup,
		IsActive:    true,
	}
	if err := w.store.SaveBotConfig(ctx, record); err != nil {
		w.logger.ErrorContext(ctx, "Failed to persist bot config", "error", err)
		w.lastErr = w.cfg.InstallMsgConfigError
		return w.statusLocked()
	}

	w.step = StepComplete
	w.lastErr = ""
	w.logger.InfoContext(ctx, "Installation completed", "config_id", record.ID)

	if w.onComplete != nil {
		w.onComplete(ctx, record)
	}
	return w.statusLocked()
}
