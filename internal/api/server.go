// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/realtime"
	"github.com/defi-dashboard/internal/service"
	"github.com/gorilla/mux"
)

// ReconcileEngine defines the engine operations the API exposes
type ReconcileEngine interface {
	GetPortfolio(ctx context.Context, address string) (*models.Account, error)
	ListTransactions(ctx context.Context, address string, limit int) ([]*models.Transaction, error)
	SyncTransactions(ctx context.Context, address string) (*service.SyncResult, error)
}

// Server represents the HTTP API server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	engine     ReconcileEngine
	hub        *realtime.Hub
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance
func NewServer(config *ServerConfig, engine ReconcileEngine, hub *realtime.Hub) *Server {
	s := &Server{
		router: mux.NewRouter(),
		engine: engine,
		hub:    hub,
		config: config,
		logger: logging.GetGlobalLogger().WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/portfolio/sync", s.handleSync).Methods("POST")
	api.HandleFunc("/portfolio/{address}", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/{address}/transactions", s.handleListTransactions).Methods("GET")

	if s.hub != nil {
		s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			realtime.ServeWS(s.hub, w, r)
		})
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "portfolio-dashboard",
	})
}

// Router returns the configured router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
