// Package state caches the application view of the store: whether
// installation completed, the active bot config, recent messages, and
// the dashboard counters. Readers take cheap snapshots instead of
// querying the store on every request.
package state

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/relay"
)

// recentMessageLimit caps how many messages a snapshot carries.
const recentMessageLimit = 100

// Snapshot is an immutable view of the cached state. Slices must not be
// mutated by callers.
type Snapshot struct {
	Installed bool                  `json:"installed"`
	BotConfig *database.BotConfig   `json:"botConfig"`
	Messages  []database.Message    `json:"messages"`
	Stats     database.MessageStats `json:"stats"`
	RefreshAt time.Time             `json:"refreshAt"`
}

// State holds the cached view and refreshes it from the store. Concurrent
// refreshes are ordered by a sequence counter; a refresh that finishes
// after a newer one started discards its result instead of overwriting
// fresher data.
type State struct {
	store  database.Store
	logger *slog.Logger

	seq atomic.Uint64

	mu      sync.RWMutex
	applied uint64
	current Snapshot
}

// New creates a State over the given store.
func New(store database.Store, log *slog.Logger) *State {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{
		store:  store,
		logger: log.With("component", "state"),
	}
}

// Initialize performs the first load. Unlike Refresh it propagates every
// store failure so startup can abort instead of running on an empty cache.
func (s *State) Initialize(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("state initialization: store unreachable: %w", err)
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("state initialization: %w", err)
	}
	s.logger.InfoContext(ctx, "Application state initialized")
	return nil
}

// Refresh reloads the snapshot from the store. When refreshes overlap,
// only the one that started last may publish its result.
func (s *State) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)

	cfg, err := s.store.GetBotConfig(ctx)
	if err != nil {
		return fmt.Errorf("refresh bot config: %w", err)
	}

	next := Snapshot{
		Installed: cfg != nil,
		BotConfig: cfg,
		RefreshAt: time.Now().UTC(),
	}

	if cfg != nil {
		stats, err := s.store.GetMessageStats(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("refresh message stats: %w", err)
		}
		next.Stats = stats

		source := relay.NormalizeChatID(cfg.SourceGroup)
		if source != "" {
			messages, err := s.store.ListMessagesByChat(ctx, source, recentMessageLimit)
			if err != nil {
				return fmt.Errorf("refresh recent messages: %w", err)
			}
			next.Messages = messages
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		s.logger.DebugContext(ctx, "Discarding stale state refresh",
			"seq", seq, "applied", s.applied)
		return nil
	}
	s.applied = seq
	s.current = next
	return nil
}

// SetBotConfig publishes a newly installed config without a store round
// trip. The next Refresh reconciles the rest of the snapshot.
func (s *State) SetBotConfig(cfg *database.BotConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.BotConfig = cfg
	s.current.Installed = cfg != nil
}

// UpdateMessageStats replaces the cached dashboard counters.
func (s *State) UpdateMessageStats(stats database.MessageStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Stats = stats
}

// Snapshot returns the current cached view.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Installed reports whether a bot config exists.
func (s *State) Installed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Installed
}
