// Package http provides the HTTP server, router and cross-cutting middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/edibox/internal/config"
	"github.com/allisson/edibox/internal/metrics"
	transactionHTTP "github.com/allisson/edibox/internal/transaction/http"
)

const (
	readinessTimeout = 2 * time.Second
	componentOK      = "ok"
	componentError   = "error"
	databaseCheck    = "database"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger

	mu     sync.RWMutex
	checks []namedCheck
}

// NewServer creates a new HTTP server. The database readiness check is registered by default.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	s := &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.checks = []namedCheck{{name: databaseCheck, check: s.pingDatabase}}
	return s
}

// SetReadinessCheck registers check under name, replacing an existing check with the
// same name. A nil check removes the component from the readiness report.
func (s *Server) SetReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.checks {
		if c.name != name {
			continue
		}
		if check == nil {
			s.checks = append(s.checks[:i], s.checks[i+1:]...)
		} else {
			s.checks[i].check = check
		}
		return
	}
	if check != nil {
		s.checks = append(s.checks, namedCheck{name: name, check: check})
	}
}

// SetupRouter configures the Gin router with all routes and middleware.
func (s *Server) SetupRouter(
	cfg *config.Config,
	transactionHandler *transactionHTTP.TransactionHandler,
	ediHandler *transactionHTTP.EDIHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	transactions := v1.Group("/transactions")
	{
		transactions.POST("", transactionHandler.CreateHandler)
		transactions.GET("", transactionHandler.ListHandler)
		transactions.GET("/:id", transactionHandler.GetHandler)
		transactions.PATCH("/:id", transactionHandler.UpdateHandler)
		transactions.DELETE("/:id", transactionHandler.DeleteHandler)
		transactions.POST("/:id/move", transactionHandler.MoveHandler)
		transactions.POST("/:id/accept", transactionHandler.AcceptHandler)
		transactions.POST("/:id/send", transactionHandler.SendHandler)
		transactions.POST("/:id/restore", transactionHandler.RestoreHandler)
		transactions.POST("/:id/acknowledge", transactionHandler.AcknowledgeHandler)
		transactions.GET("/:id/validation", transactionHandler.ValidationHandler)
		transactions.GET("/:id/acknowledgment-errors", transactionHandler.AcknowledgmentErrorsHandler)
		transactions.GET("/:id/history", transactionHandler.HistoryHandler)
		transactions.GET("/:id/raw", transactionHandler.RawHandler)
	}

	v1.GET("/folders", transactionHandler.AllFolderStatsHandler)
	v1.GET("/folders/:stage/stats", transactionHandler.FolderStatsHandler)
	v1.GET("/partners", transactionHandler.PartnersHandler)
	v1.GET("/document-types", transactionHandler.DocumentTypesHandler)

	ediGroup := v1.Group("/edi")
	{
		ediGroup.POST("/detect", ediHandler.DetectHandler)
		ediGroup.POST("/parse", ediHandler.ParseHandler)
		ediGroup.POST("/validate", ediHandler.ValidateHandler)
		ediGroup.POST("/generate", ediHandler.GenerateHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler runs every registered check and reports 503 if any of them fails.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	s.mu.RLock()
	checks := make([]namedCheck, len(s.checks))
	copy(checks, s.checks)
	s.mu.RUnlock()

	ready := true
	components := make(map[string]string, len(checks))
	for _, nc := range checks {
		if err := nc.check(ctx); err != nil {
			s.logger.Warn("readiness check failed",
				slog.String("component", nc.name),
				slog.Any("error", err),
			)
			components[nc.name] = componentError
			ready = false
			continue
		}
		components[nc.name] = componentOK
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is not configured")
	}
	return s.db.PingContext(ctx)
}
