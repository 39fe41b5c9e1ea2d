package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/event"
)

// DigestWorkerConfig holds configuration for the approval digest worker
type DigestWorkerConfig struct {
	PollInterval time.Duration
}

// DefaultDigestWorkerConfig returns default configuration
func DefaultDigestWorkerConfig() DigestWorkerConfig {
	return DigestWorkerConfig{
		PollInterval: time.Minute,
	}
}

// DigestWorker flushes batched approval notifications. Groups with batch
// notifications enabled get one approval_digest event per day, sent at the
// group's configured notification time instead of per-expense pushes.
type DigestWorker struct {
	config DigestWorkerConfig

	queueRepo    port.QueueRepository
	settingsRepo port.SettingsRepository
	notifier     port.Notifier
	logger       *zap.Logger

	now func() time.Time

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	lastSent  map[string]string // groupID -> date of last digest ("2006-01-02")
	sentCount int
	lastError error
}

// NewDigestWorker creates a new digest worker
func NewDigestWorker(
	config DigestWorkerConfig,
	queueRepo port.QueueRepository,
	settingsRepo port.SettingsRepository,
	notifier port.Notifier,
	logger *zap.Logger,
) *DigestWorker {
	return &DigestWorker{
		config:       config,
		queueRepo:    queueRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
		lastSent:     make(map[string]string),
	}
}

// Start begins the worker polling loop
func (w *DigestWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("digest worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("DigestWorker started",
		zap.Duration("poll_interval", w.config.PollInterval))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *DigestWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("DigestWorker stopped", zap.Int("sent_count", w.sentCount))

	return nil
}

// Name returns the worker name for identification
func (w *DigestWorker) Name() string {
	return "DigestWorker"
}

// pollLoop runs the main polling loop in background
func (w *DigestWorker) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if err := w.flushDigests(); err != nil {
				w.mu.Lock()
				w.lastError = err
				w.mu.Unlock()
				w.logger.Error("Failed to flush approval digests", zap.Error(err))
			}
		}
	}
}

// flushDigests sends a digest to every group whose notification time has
// passed today and that still has queued approvals.
func (w *DigestWorker) flushDigests() error {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	groupIDs, err := w.queueRepo.PendingGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups with pending approvals: %w", err)
	}

	now := w.now()
	today := now.Format("2006-01-02")

	for _, groupID := range groupIDs {
		sent, err := w.flushGroup(ctx, groupID, now, today)
		if err != nil {
			w.logger.Warn("Failed to send approval digest",
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}
		if sent {
			w.mu.Lock()
			w.sentCount++
			w.mu.Unlock()
		}
	}

	return nil
}

// flushGroup sends at most one digest for the group and reports whether it did.
func (w *DigestWorker) flushGroup(ctx context.Context, groupID string, now time.Time, today string) (bool, error) {
	w.mu.RLock()
	alreadySent := w.lastSent[groupID] == today
	w.mu.RUnlock()
	if alreadySent {
		return false, nil
	}

	settings, err := w.settingsRepo.GetByGroupID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !settings.BatchNotifications {
		// Instant notifications were already sent at enqueue time.
		return false, nil
	}
	if !notificationDue(settings.NotificationTime, now) {
		return false, nil
	}

	count, err := w.queueRepo.CountByGroupID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	w.notifier.NotifyGroup(ctx, groupID, event.NewApprovalDigest(groupID, count))

	w.mu.Lock()
	w.lastSent[groupID] = today
	w.mu.Unlock()

	w.logger.Info("Approval digest sent",
		zap.String("group_id", groupID),
		zap.Int("pending_count", count))

	return true, nil
}

// notificationDue reports whether the configured "HH:MM" time has passed
// today. An unparsable time falls back to always due, so a bad setting never
// silences the digest entirely.
func notificationDue(notifyAt string, now time.Time) bool {
	t, err := time.Parse("15:04", notifyAt)
	if err != nil {
		return true
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	return !now.Before(due)
}
