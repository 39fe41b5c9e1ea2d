// Package container provides dependency injection and lifecycle management
// for the expense ledger, with ordered startup and reverse-order teardown.
package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/application/service"
	"github.com/gota-app/expense-ledger/internal/config"
	"github.com/gota-app/expense-ledger/internal/infrastructure/notify"
	"github.com/gota-app/expense-ledger/internal/infrastructure/persistence/repository"
	"github.com/gota-app/expense-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/gota-app/expense-ledger/internal/infrastructure/worker"
	"github.com/gota-app/expense-ledger/internal/report"
	"github.com/gota-app/expense-ledger/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Expense     port.ExpenseRepository
	Participant port.ParticipantRepository
	Settings    port.SettingsRepository
	Trust       port.TrustRepository
	Queue       port.QueueRepository
	Membership  port.MembershipProvider
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Expense  service.ExpenseService
	Approval service.ApprovalService
	Ledger   service.LedgerService
}

// ProvideDatabase opens the database, runs pending migrations, and wraps the
// connection in the transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.MigrationsDir != "" {
		migrator := database.NewMigrator(db, logger)
		if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Expense:     repository.NewExpenseRepository(sqlDB, logger),
		Participant: repository.NewParticipantRepository(sqlDB, logger),
		Settings:    repository.NewSettingsRepository(sqlDB, logger),
		Trust:       repository.NewTrustRepository(sqlDB, logger),
		Queue:       repository.NewQueueRepository(sqlDB, logger),
		Membership:  repository.NewMembershipRepository(sqlDB, logger),
	}, nil
}

// ProvideServices wires the application services over the repositories, the
// transaction manager, and the notification hub.
func ProvideServices(
	repos *RepositoryBundle,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger *zap.Logger,
) (*ServiceBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if txManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	svcLogger := &zapLoggerAdapter{logger: logger}

	approval := service.NewApprovalService(
		repos.Expense,
		repos.Participant,
		repos.Settings,
		repos.Trust,
		repos.Queue,
		repos.Membership,
		txManager,
		notifier,
		svcLogger,
	)

	expense := service.NewExpenseService(
		repos.Expense,
		repos.Participant,
		repos.Membership,
		approval,
		txManager,
		notifier,
		svcLogger,
	)

	ledger := service.NewLedgerService(
		repos.Expense,
		repos.Participant,
		repos.Membership,
		svcLogger,
	)

	return &ServiceBundle{
		Expense:  expense,
		Approval: approval,
		Ledger:   ledger,
	}, nil
}

// ProvideHub creates the websocket notification hub.
func ProvideHub(membership port.MembershipProvider, logger *zap.Logger) *notify.Hub {
	return notify.NewHub(membership, logger)
}

// ProvideExporter creates the spreadsheet exporter.
func ProvideExporter(repos *RepositoryBundle, logger *zap.Logger) *report.Exporter {
	return report.NewExporter(repos.Expense, repos.Participant, logger)
}

// ProvideWorkers registers the background workers on a manager.
func ProvideWorkers(
	cfg *config.WorkerConfig,
	repos *RepositoryBundle,
	notifier port.Notifier,
	logger *zap.Logger,
) *worker.Manager {
	manager := worker.NewManager(logger)

	digestCfg := worker.DefaultDigestWorkerConfig()
	if cfg != nil && cfg.DigestPollInterval > 0 {
		digestCfg.PollInterval = cfg.DigestPollInterval
	}
	manager.Register(worker.NewDigestWorker(digestCfg, repos.Queue, repos.Settings, notifier, logger))

	return manager
}
