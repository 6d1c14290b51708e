// Package server is the HTTP surface named as an out-of-scope
// collaborator by spec.md §1 ("treated only as collaborators via §6")
// but wired here so the core is reachable as a deployable binary,
// grounded on the teacher's internal/server/server.go.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/handlers"
	"github.com/ternarybob/contex/internal/orchestrator"
)

// Server manages the HTTP listener and routes for the Contex core.
type Server struct {
	engine *orchestrator.Engine
	cfg    *common.Config
	logger arbor.ILogger

	publishHandler  *handlers.PublishHandler
	registerHandler *handlers.RegisterHandler
	queryHandler    *handlers.QueryHandler
	projectHandler  *handlers.ProjectHandler
	brokerHandler   *handlers.BrokerHandler

	httpServer *http.Server
}

// New builds a Server wired to engine, constructing every HTTP handler.
func New(engine *orchestrator.Engine, cfg *common.Config, logger arbor.ILogger) *Server {
	s := &Server{
		engine:          engine,
		cfg:             cfg,
		logger:          logger,
		publishHandler:  handlers.NewPublishHandler(engine, logger),
		registerHandler: handlers.NewRegisterHandler(engine, logger),
		queryHandler:    handlers.NewQueryHandler(engine, logger),
		projectHandler:  handlers.NewProjectHandler(engine, logger),
		brokerHandler:   handlers.NewBrokerHandler(engine.Broker(), logger),
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start runs the HTTP listener until Shutdown is called or it fails.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("contex HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down contex HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler exposes the underlying mux, used by tests to drive requests
// without a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
