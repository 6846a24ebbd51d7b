// Package dashboard serves a live-replay view of a running backtest over
// HTTP and WebSocket: a snapshot endpoint plus a stream of tick/signal/
// fill/account events read off the engine's event bus. Grounded on the
// teacher's internal/api package — the Hub/Client broadcast pattern in
// stream.go carries over unchanged; the snapshot and event payload types
// are replaced to describe a backtest run instead of a market-making bot.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"aegisgo/internal/config"
	"aegisgo/pkg/types"
)

// Server runs the HTTP/WebSocket API for the replay dashboard.
type Server struct {
	cfg      config.DashboardConfig
	provider Provider
	symbol   string
	fullCfg  config.Config
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger

	events <-chan types.Event
}

// NewServer creates a dashboard server. events, if non-nil, is a channel of
// bus events (e.g. from bus.Subscribe(types.AllEvents()).C) that gets
// broadcast to every connected client as it arrives.
func NewServer(cfg config.DashboardConfig, provider Provider, symbol string, fullCfg config.Config, events <-chan types.Event, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, symbol, fullCfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		symbol:   symbol,
		fullCfg:  fullCfg,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "dashboard-server"),
		events:   events,
	}
}

// Start starts the hub, the event consumer, and the HTTP server. Blocks
// until the server stops.
func (s *Server) Start() error {
	go s.hub.Run()
	if s.events != nil {
		go s.consumeEvents()
	}

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) consumeEvents() {
	for evt := range s.events {
		dashEvt, ok := toDashboardEvent(evt)
		if !ok {
			continue
		}
		s.hub.BroadcastEvent(dashEvt)
	}
}
