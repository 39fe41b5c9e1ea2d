package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/config"
	"github.com/gota-app/expense-ledger/internal/infrastructure/notify"
	"github.com/gota-app/expense-ledger/internal/infrastructure/worker"
	httpapi "github.com/gota-app/expense-ledger/internal/interfaces/http"
	"github.com/gota-app/expense-ledger/internal/report"
	"github.com/gota-app/expense-ledger/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components initialize in dependency order and tear down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	db           *database.DB
	repositories *RepositoryBundle

	hub      *notify.Hub
	services *ServiceBundle
	exporter *report.Exporter
	workers  *worker.Manager
	server   *httpapi.Server

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// database and repositories, notification hub, application services,
// workers, then the HTTP server (started by the caller via Server()).
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = dbBundle.DB

	repos, err := ProvideRepositories(c.db.DB, c.logger)
	if err != nil {
		c.db.Close()
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	c.repositories = repos
	c.logger.Info("Database and repositories initialized")

	c.hub = ProvideHub(repos.Membership, c.logger)

	services, err := ProvideServices(repos, dbBundle.TransactionMgr, c.hub, c.logger)
	if err != nil {
		c.db.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.exporter = ProvideExporter(repos, c.logger)
	c.logger.Info("Application services initialized")

	c.workers = ProvideWorkers(&c.config.Worker, repos, c.hub, c.logger)
	if err := c.workers.StartAll(c.ctx); err != nil {
		c.db.Close()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started")

	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		services.Expense,
		services.Approval,
		services.Ledger,
		c.exporter,
		c.hub,
		c.healthCheck,
		&zapLoggerAdapter{logger: c.logger},
	)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Server returns the HTTP server. Valid after Start.
func (c *Container) Server() *httpapi.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		for _, err := range errs {
			c.logger.Error("Shutdown error", zap.Error(err))
		}
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// healthCheck adapts Health to the HTTP server's health hook.
func (c *Container) healthCheck() (interface{}, bool) {
	status := c.Health()
	return status, status.Overall
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if !c.Ready() {
		status.Components["container"] = ComponentHealth{Healthy: false, Message: "not ready"}
		status.Overall = false
	}

	if c.db != nil {
		if err := c.db.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.WorkerCount()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.hub != nil {
		status.Components["hub"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("connected users: %d", c.hub.ConnectedUsers()),
		}
	} else {
		status.Components["hub"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// zapLoggerAdapter adapts zap.Logger to the narrow Logger interfaces the
// service and http packages declare.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
