// Package api is the HTTP and WebSocket surface: scenario management, run
// control, persisted history reads, and the live event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotionsim/emotionsim/pkg/database"
	"github.com/emotionsim/emotionsim/pkg/events"
	"github.com/emotionsim/emotionsim/pkg/sim"
	"github.com/emotionsim/emotionsim/pkg/store"
)

// Server represents the API server.
type Server struct {
	store       store.Store
	manager     *sim.Manager
	connManager *events.ConnectionManager
	db          *database.Client // nil when running on the in-memory store
	logger      *slog.Logger

	httpServer *http.Server
}

// NewServer creates a new API server. db may be nil.
func NewServer(st store.Store, manager *sim.Manager, connManager *events.ConnectionManager, db *database.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       st,
		manager:     manager,
		connManager: connManager,
		db:          db,
		logger:      logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.healthHandler)

	api := r.Group("/api")
	{
		api.POST("/scenarios", s.createScenarioHandler)
		api.GET("/scenarios", s.listScenariosHandler)
		api.GET("/scenarios/:id", s.getScenarioHandler)

		api.POST("/runs", s.createRunHandler)
		api.GET("/runs", s.listRunsHandler)
		api.GET("/runs/:id", s.getRunHandler)
		api.POST("/runs/:id/control", s.controlRunHandler)
		api.GET("/runs/:id/agents", s.listRunAgentsHandler)
		api.GET("/runs/:id/steps", s.listRunStepsHandler)
		api.GET("/runs/:id/messages", s.listRunMessagesHandler)
		api.GET("/runs/:id/ws", s.runEventsHandler)
	}

	return r
}

// Start begins serving on addr. Blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
