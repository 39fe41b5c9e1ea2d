// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gota-app/expense-ledger/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ConnectionHandler upgrades an HTTP request to a push connection for a user.
type ConnectionHandler interface {
	HandleConnection(w http.ResponseWriter, r *http.Request, userID string)
}

// ExpenseExporter writes a group's expense history as a spreadsheet.
type ExpenseExporter interface {
	ExportGroupExpenses(ctx context.Context, groupID string, start, end *time.Time, w io.Writer) error
}

// HealthFunc reports component health for the /health endpoint. The status
// payload is serialized as-is; healthy selects between 200 and 503.
type HealthFunc func() (status interface{}, healthy bool)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config          ServerConfig
	httpServer      *http.Server
	router          *gin.Engine
	expenseService  service.ExpenseService
	approvalService service.ApprovalService
	ledgerService   service.LedgerService
	exporter        ExpenseExporter
	connections     ConnectionHandler
	health          HealthFunc
	logger          Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	expenseService service.ExpenseService,
	approvalService service.ApprovalService,
	ledgerService service.LedgerService,
	exporter ExpenseExporter,
	connections ConnectionHandler,
	health HealthFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:          config,
		router:          router,
		expenseService:  expenseService,
		approvalService: approvalService,
		ledgerService:   ledgerService,
		exporter:        exporter,
		connections:     connections,
		health:          health,
		logger:          logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.expenseService, s.approvalService, s.ledgerService, s.exporter, s.health, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// Push connections; the gateway in front authenticates the user.
	s.router.GET("/ws/:userID", func(c *gin.Context) {
		s.connections.HandleConnection(c.Writer, c.Request, c.Param("userID"))
	})

	// API routes, scoped to a group. All of them require the acting user in
	// the X-User-ID header.
	api := s.router.Group("/api/groups/:groupID", requireActor())
	{
		api.POST("/expenses", handlers.CreateExpense)
		api.GET("/expenses", handlers.ListExpenses)
		api.GET("/expenses/:expenseID", handlers.GetExpense)
		api.POST("/expenses/:expenseID/approve", handlers.ApproveExpense)
		api.POST("/expenses/:expenseID/reject", handlers.RejectExpense)
		api.POST("/expenses/:expenseID/settle", handlers.SettleExpense)
		api.POST("/approvals/batch", handlers.BatchApprove)
		api.GET("/approvals/pending", handlers.PendingApprovals)
		api.GET("/approvals/stats", handlers.ApprovalStats)
		api.GET("/settings", handlers.GetSettings)
		api.PUT("/settings", handlers.UpdateSettings)
		api.GET("/balances", handlers.GroupBalances)
		api.GET("/balances/me", handlers.UserBalance)
		api.GET("/summary", handlers.GroupSummary)
		api.GET("/settlement-plan", handlers.SettlementPlan)
		api.GET("/export", handlers.ExportExpenses)
	}
}

// requireActor rejects requests without an acting user header.
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-User-ID")
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing X-User-ID header",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
