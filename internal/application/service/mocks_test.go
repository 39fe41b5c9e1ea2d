package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/event"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockNotifier struct {
	groupEvents []*event.Event
	userEvents  []*event.Event
}

func (m *mockNotifier) NotifyGroup(ctx context.Context, groupID string, evt *event.Event) {
	m.groupEvents = append(m.groupEvents, evt)
}

func (m *mockNotifier) NotifyUser(ctx context.Context, userID string, evt *event.Event) {
	m.userEvents = append(m.userEvents, evt)
}

// mockExpenseRepo is a stateful in-memory ExpenseRepository.
type mockExpenseRepo struct {
	expenses       map[string]*entity.Expense
	hasSimilarFunc func(ctx context.Context, groupID, payerID, titlePrefix string, low, high decimal.Decimal, since time.Time) (bool, error)
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{expenses: make(map[string]*entity.Expense)}
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	e, ok := m.expenses[id]
	if !ok || !e.IsActive {
		return nil, fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpenseRepo) GetByGroupID(ctx context.Context, groupID string, limit, offset int) ([]*entity.Expense, error) {
	var out []*entity.Expense
	for _, e := range m.expenses {
		if e.GroupID == groupID && e.IsActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockExpenseRepo) ListForExport(ctx context.Context, groupID string, start, end *time.Time) ([]*entity.Expense, error) {
	var out []*entity.Expense
	for _, e := range m.expenses {
		if e.GroupID != groupID || !e.IsActive {
			continue
		}
		if start != nil && e.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && e.CreatedAt.After(*end) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockExpenseRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	e.Status = status
	return nil
}

func (m *mockExpenseRepo) SetApproval(ctx context.Context, id string, approvedBy string, approvalType string, approvedAt time.Time) error {
	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	if approvedBy == "" {
		e.Status = entity.StatusAutoApproved
	} else {
		e.Status = entity.StatusApproved
	}
	e.ApprovedBy = approvedBy
	e.ApprovalType = approvalType
	e.ApprovedAt = &approvedAt
	return nil
}

func (m *mockExpenseRepo) SetRejection(ctx context.Context, id string, rejectedBy string, reason string) error {
	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	e.Status = entity.StatusRejected
	e.ApprovedBy = rejectedBy
	e.RejectionReason = reason
	return nil
}

func (m *mockExpenseRepo) CountByGroup(ctx context.Context, groupID string) (int, error) {
	n := 0
	for _, e := range m.expenses {
		if e.GroupID == groupID && e.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockExpenseRepo) CountByGroupAndStatus(ctx context.Context, groupID, status string) (int, error) {
	n := 0
	for _, e := range m.expenses {
		if e.GroupID == groupID && e.IsActive && e.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockExpenseRepo) CountAutoApproved(ctx context.Context, groupID string) (int, error) {
	auto := map[string]bool{
		entity.ApprovalAutoAmount:    true,
		entity.ApprovalAutoTrust:     true,
		entity.ApprovalAutoReceipt:   true,
		entity.ApprovalAutoRecurring: true,
	}
	n := 0
	for _, e := range m.expenses {
		if e.GroupID == groupID && e.IsActive && auto[e.ApprovalType] {
			n++
		}
	}
	return n, nil
}

func (m *mockExpenseRepo) SumByGroup(ctx context.Context, groupID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.expenses {
		if e.GroupID == groupID && e.IsActive {
			sum = sum.Add(e.TotalAmount)
		}
	}
	return sum, nil
}

func (m *mockExpenseRepo) HasSimilarApproved(ctx context.Context, groupID, payerID, titlePrefix string, low, high decimal.Decimal, since time.Time) (bool, error) {
	if m.hasSimilarFunc != nil {
		return m.hasSimilarFunc(ctx, groupID, payerID, titlePrefix, low, high, since)
	}
	return false, nil
}

// mockParticipantRepo is a stateful in-memory ParticipantRepository. It needs
// the expense repo to resolve group membership of shares for GetTotals.
type mockParticipantRepo struct {
	participants []*entity.ExpenseParticipant
	expenses     *mockExpenseRepo
}

func newMockParticipantRepo(expenses *mockExpenseRepo) *mockParticipantRepo {
	return &mockParticipantRepo{expenses: expenses}
}

func (m *mockParticipantRepo) Create(ctx context.Context, p *entity.ExpenseParticipant) error {
	cp := *p
	m.participants = append(m.participants, &cp)
	return nil
}

func (m *mockParticipantRepo) GetByExpenseID(ctx context.Context, expenseID string) ([]*entity.ExpenseParticipant, error) {
	var out []*entity.ExpenseParticipant
	for _, p := range m.participants {
		if p.ExpenseID == expenseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockParticipantRepo) UpdatePayment(ctx context.Context, id string, amountPaid decimal.Decimal, status string, paidAt *time.Time) error {
	for _, p := range m.participants {
		if p.ID == id {
			p.AmountPaid = amountPaid
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: participant %s", entity.ErrNotFound, id)
}

func (m *mockParticipantRepo) GetTotals(ctx context.Context, groupID, userID string) (*port.ParticipantTotals, error) {
	totals := &port.ParticipantTotals{
		TotalOwed: decimal.Zero,
		TotalPaid: decimal.Zero,
	}
	for _, p := range m.participants {
		if p.UserID != userID || !p.IsActive {
			continue
		}
		e, ok := m.expenses.expenses[p.ExpenseID]
		if !ok || e.GroupID != groupID || !e.IsActive {
			continue
		}
		totals.TotalOwed = totals.TotalOwed.Add(p.AmountOwed)
		totals.TotalPaid = totals.TotalPaid.Add(p.AmountPaid)
		totals.ExpenseCount++
		if p.Status == entity.ParticipantPending {
			totals.PendingCount++
		}
	}
	return totals, nil
}

type mockSettingsRepo struct {
	settings map[string]*entity.GroupApprovalSettings
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{settings: make(map[string]*entity.GroupApprovalSettings)}
}

func (m *mockSettingsRepo) GetByGroupID(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error) {
	s, ok := m.settings[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: settings for group %s", entity.ErrNotFound, groupID)
	}
	return s, nil
}

func (m *mockSettingsRepo) Create(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	m.settings[settings.GroupID] = settings
	return nil
}

func (m *mockSettingsRepo) Update(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	m.settings[settings.GroupID] = settings
	return nil
}

type mockTrustRepo struct {
	records map[string]*entity.GroupMemberTrust
}

func newMockTrustRepo() *mockTrustRepo {
	return &mockTrustRepo{records: make(map[string]*entity.GroupMemberTrust)}
}

func trustKey(groupID, userID string) string { return groupID + "/" + userID }

func (m *mockTrustRepo) GetByGroupAndUser(ctx context.Context, groupID, userID string) (*entity.GroupMemberTrust, error) {
	rec, ok := m.records[trustKey(groupID, userID)]
	if !ok {
		return nil, fmt.Errorf("%w: trust for %s in %s", entity.ErrNotFound, userID, groupID)
	}
	return rec, nil
}

func (m *mockTrustRepo) Create(ctx context.Context, trust *entity.GroupMemberTrust) error {
	m.records[trustKey(trust.GroupID, trust.UserID)] = trust
	return nil
}

func (m *mockTrustRepo) Update(ctx context.Context, trust *entity.GroupMemberTrust) error {
	m.records[trustKey(trust.GroupID, trust.UserID)] = trust
	return nil
}

type mockQueueRepo struct {
	entries []*entity.ApprovalQueueEntry
	nextID  int64
}

func (m *mockQueueRepo) Enqueue(ctx context.Context, entry *entity.ApprovalQueueEntry) error {
	m.nextID++
	cp := *entry
	cp.ID = m.nextID
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockQueueRepo) GetByExpenseID(ctx context.Context, expenseID string) (*entity.ApprovalQueueEntry, error) {
	for _, e := range m.entries {
		if e.ExpenseID == expenseID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: queue entry for expense %s", entity.ErrNotFound, expenseID)
}

func (m *mockQueueRepo) GetByGroupID(ctx context.Context, groupID string) ([]*entity.ApprovalQueueEntry, error) {
	var out []*entity.ApprovalQueueEntry
	for _, e := range m.entries {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockQueueRepo) CountByGroupID(ctx context.Context, groupID string) (int, error) {
	n := 0
	for _, e := range m.entries {
		if e.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (m *mockQueueRepo) PendingGroups(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if !seen[e.GroupID] {
			seen[e.GroupID] = true
			out = append(out, e.GroupID)
		}
	}
	return out, nil
}

func (m *mockQueueRepo) Remove(ctx context.Context, expenseID string) error {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.ExpenseID != expenseID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

type mockMembership struct {
	members map[string][]*entity.GroupMembership
}

func newMockMembership() *mockMembership {
	return &mockMembership{members: make(map[string][]*entity.GroupMembership)}
}

func (m *mockMembership) add(groupID, userID, role string) {
	m.members[groupID] = append(m.members[groupID], &entity.GroupMembership{
		ID:       fmt.Sprintf("m-%s-%s", groupID, userID),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
		JoinedAt: time.Now(),
	})
}

func (m *mockMembership) IsActiveMember(ctx context.Context, groupID, userID string) (bool, error) {
	for _, mem := range m.members[groupID] {
		if mem.UserID == userID && mem.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMembership) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	for _, mem := range m.members[groupID] {
		if mem.UserID == userID && mem.IsActive && mem.Role == entity.RoleOwner {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMembership) ActiveMembers(ctx context.Context, groupID string) ([]*entity.GroupMembership, error) {
	var out []*entity.GroupMembership
	for _, mem := range m.members[groupID] {
		if mem.IsActive {
			out = append(out, mem)
		}
	}
	return out, nil
}

// fixture wires the full service stack over the in-memory mocks.
type fixture struct {
	expenseRepo     *mockExpenseRepo
	participantRepo *mockParticipantRepo
	settingsRepo    *mockSettingsRepo
	trustRepo       *mockTrustRepo
	queueRepo       *mockQueueRepo
	membership      *mockMembership
	notifier        *mockNotifier

	expenses ExpenseService
	approval ApprovalService
	ledgers  LedgerService
}

func newFixture() *fixture {
	f := &fixture{
		expenseRepo:  newMockExpenseRepo(),
		settingsRepo: newMockSettingsRepo(),
		trustRepo:    newMockTrustRepo(),
		queueRepo:    &mockQueueRepo{},
		membership:   newMockMembership(),
		notifier:     &mockNotifier{},
	}
	f.participantRepo = newMockParticipantRepo(f.expenseRepo)

	logger := &mockLogger{}
	tx := &mockTxManager{}

	f.approval = NewApprovalService(
		f.expenseRepo, f.participantRepo, f.settingsRepo, f.trustRepo,
		f.queueRepo, f.membership, tx, f.notifier, logger,
	)
	f.expenses = NewExpenseService(
		f.expenseRepo, f.participantRepo, f.membership, f.approval, tx, f.notifier, logger,
	)
	f.ledgers = NewLedgerService(f.expenseRepo, f.participantRepo, f.membership, logger)
	return f
}
