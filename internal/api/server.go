// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/service"
)

// Service interfaces for dependency injection and testing

// ProjectServiceInterface defines the interface for project operations
type ProjectServiceInterface interface {
	CreateProject(ctx context.Context, input *service.CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID string) (*models.Project, error)
	UpdateProject(ctx context.Context, input *service.UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID string) (*service.DeleteProjectResult, error)
	ListProjects(ctx context.Context, userID string) ([]*models.Project, error)
}

// TransactionServiceInterface defines the interface for transaction operations
type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error)
}

// DashboardServiceInterface defines the interface for dashboard snapshot reads
type DashboardServiceInterface interface {
	Snapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error)
}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	projectService     ProjectServiceInterface
	transactionService TransactionServiceInterface
	dashboardService   DashboardServiceInterface
	changes            service.ChangeSource
	config             *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int

	// KeepStaleOnError selects the dashboard watch failure policy: stream
	// the last-known-good snapshot alongside the error, or a zeroed one.
	KeepStaleOnError bool
}

// NewServer creates a new API server instance. changes feeds the dashboard
// watch stream and may be nil; watches then refresh only on connect.
func NewServer(
	config *ServerConfig,
	projectService ProjectServiceInterface,
	transactionService TransactionServiceInterface,
	dashboardService DashboardServiceInterface,
	changes service.ChangeSource,
) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		projectService:     projectService,
		transactionService: transactionService,
		dashboardService:   dashboardService,
		changes:            changes,
		config:             config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

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

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Project endpoints
	api.HandleFunc("/projects", s.handleCreateProject).Methods("POST")
	api.HandleFunc("/projects", s.handleListProjects).Methods("GET")
	api.HandleFunc("/projects/{id}", s.handleGetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", s.handleUpdateProject).Methods("PUT")
	api.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{id}/transactions", s.handleListProjectTransactions).Methods("GET")

	// Transaction endpoints
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods("POST")

	// Dashboard endpoints
	api.HandleFunc("/dashboard", s.handleGetDashboard).Methods("GET")
	api.HandleFunc("/dashboard/watch", s.handleWatchDashboard).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "project-ledger",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
