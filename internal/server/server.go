// Package server exposes the console HTTP API: install wizard actions,
// dashboard stats, and CRUD over configs, messages, users, and channels.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	sloghttp "github.com/samber/slog-http"

	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
	"github.com/amsaid/relayconsole/internal/state"
)

// Relay is the subset of the Telegram client the API needs. The
// orchestrator supplies it lazily since the relay only exists once a bot
// config has been installed.
type Relay interface {
	MemberCount(ctx context.Context, chatID string) (int, error)
	SyncAdmins(ctx context.Context, chatID string) (int, error)
	Send(ctx context.Context, chatID, text string) (int, error)
	LookupChannel(ctx context.Context, chatID string) (*database.Channel, error)
	ChannelMessages(ctx context.Context, chatID string, limit int) ([]database.Message, error)
}

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Store  database.Store
	State  *state.State
	Wizard *install.Wizard

	// Relay returns the current relay client or nil when the bot is not
	// installed yet.
	Relay func() Relay

	Logger *slog.Logger
}

// Server wraps the console HTTP server.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the router and HTTP server from config and dependencies.
func New(cfg *config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("component", "server")
	deps.Logger = log

	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(sloghttp.Recovery)
	r.Use(sloghttp.New(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.ServerCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/stats", h.stats)
		r.Get("/activity", h.activity)

		r.Route("/install", func(r chi.Router) {
			r.Get("/", h.installStatus)
			r.Get("/status", h.installStatus)
			r.Post("/database", h.installDatabase)
			r.Post("/config", h.installConfig)
			r.Post("/complete", h.installComplete)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.getConfig)
			r.Put("/", h.putConfig)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.listMessages)
			r.Post("/send", h.sendMessage)
			r.Patch("/{id}/status", h.updateMessageStatus)
			r.Delete("/{id}", h.deleteMessage)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/sync", h.syncUsers)
			r.Patch("/{id}/status", h.updateUserStatus)
			r.Delete("/{id}", h.deleteUser)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", h.listChannels)
			r.Get("/{id}", h.getChannel)
			r.Put("/{id}", h.putChannel)
			r.Post("/{id}/lookup", h.lookupChannel)
			r.Get("/{id}/messages", h.channelMessages)
			r.Get("/{id}/members", h.channelMembers)
		})
	})

	return &Server{
		srv: &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           r,
			ReadHeaderTimeout: cfg.ServerTimeout,
			ReadTimeout:       cfg.ServerTimeout,
			WriteTimeout:      cfg.ServerTimeout,
		},
		logger: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return <-errCh
}
