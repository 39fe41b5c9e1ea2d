package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/event"
)

type stubQueueRepo struct {
	groups map[string]int
}

func (s *stubQueueRepo) Enqueue(ctx context.Context, entry *entity.ApprovalQueueEntry) error {
	s.groups[entry.GroupID]++
	return nil
}

func (s *stubQueueRepo) GetByExpenseID(ctx context.Context, expenseID string) (*entity.ApprovalQueueEntry, error) {
	return nil, entity.ErrNotFound
}

func (s *stubQueueRepo) GetByGroupID(ctx context.Context, groupID string) ([]*entity.ApprovalQueueEntry, error) {
	return nil, nil
}

func (s *stubQueueRepo) CountByGroupID(ctx context.Context, groupID string) (int, error) {
	return s.groups[groupID], nil
}

func (s *stubQueueRepo) PendingGroups(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.groups))
	for id, n := range s.groups {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *stubQueueRepo) Remove(ctx context.Context, expenseID string) error { return nil }

type stubSettingsRepo struct {
	settings map[string]*entity.GroupApprovalSettings
}

func (s *stubSettingsRepo) GetByGroupID(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error) {
	st, ok := s.settings[groupID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return st, nil
}

func (s *stubSettingsRepo) Create(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	s.settings[settings.GroupID] = settings
	return nil
}

func (s *stubSettingsRepo) Update(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	s.settings[settings.GroupID] = settings
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*event.Event
}

func (n *recordingNotifier) NotifyGroup(ctx context.Context, groupID string, evt *event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID string, evt *event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) sent() []*event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*event.Event(nil), n.events...)
}

func newDigestFixture(t *testing.T) (*DigestWorker, *stubQueueRepo, *stubSettingsRepo, *recordingNotifier) {
	t.Helper()
	queue := &stubQueueRepo{groups: make(map[string]int)}
	settings := &stubSettingsRepo{settings: make(map[string]*entity.GroupApprovalSettings)}
	notifier := &recordingNotifier{}
	w := NewDigestWorker(DefaultDigestWorkerConfig(), queue, settings, notifier, zap.NewNop())
	return w, queue, settings, notifier
}

func TestDigestWorker_SendsOneDigestPerDay(t *testing.T) {
	w, queue, settingsRepo, notifier := newDigestFixture(t)

	queue.groups["g1"] = 3
	settingsRepo.settings["g1"] = entity.DefaultApprovalSettings("g1")

	// 19:00, past the default 18:00 notification time.
	w.now = func() time.Time {
		return time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	}

	require.NoError(t, w.flushDigests())
	require.NoError(t, w.flushDigests())

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeApprovalDigest, events[0].Type)
	assert.Equal(t, "g1", events[0].GroupID)
	assert.Equal(t, 3, events[0].Payload["pending_count"])
}

func TestDigestWorker_WaitsForNotificationTime(t *testing.T) {
	w, queue, settingsRepo, notifier := newDigestFixture(t)

	queue.groups["g1"] = 2
	settingsRepo.settings["g1"] = entity.DefaultApprovalSettings("g1")

	w.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	}

	require.NoError(t, w.flushDigests())
	assert.Empty(t, notifier.sent())

	w.now = func() time.Time {
		return time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	}

	require.NoError(t, w.flushDigests())
	assert.Len(t, notifier.sent(), 1)
}

func TestDigestWorker_SkipsInstantNotificationGroups(t *testing.T) {
	w, queue, settingsRepo, notifier := newDigestFixture(t)

	queue.groups["g1"] = 2
	st := entity.DefaultApprovalSettings("g1")
	st.BatchNotifications = false
	settingsRepo.settings["g1"] = st

	w.now = func() time.Time {
		return time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	}

	require.NoError(t, w.flushDigests())
	assert.Empty(t, notifier.sent())
}

func TestDigestWorker_SendsAgainNextDay(t *testing.T) {
	w, queue, settingsRepo, notifier := newDigestFixture(t)

	queue.groups["g1"] = 1
	settingsRepo.settings["g1"] = entity.DefaultApprovalSettings("g1")

	w.now = func() time.Time {
		return time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	}
	require.NoError(t, w.flushDigests())

	w.now = func() time.Time {
		return time.Date(2025, 3, 11, 20, 0, 0, 0, time.UTC)
	}
	require.NoError(t, w.flushDigests())

	assert.Len(t, notifier.sent(), 2)
}

func TestDigestWorker_StartStop(t *testing.T) {
	w, _, _, _ := newDigestFixture(t)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start must fail")
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")
}

func TestNotificationDue(t *testing.T) {
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, notificationDue("09:00", noon))
	assert.True(t, notificationDue("12:00", noon))
	assert.False(t, notificationDue("18:00", noon))
	assert.True(t, notificationDue("not-a-time", noon))
}
