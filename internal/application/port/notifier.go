package port

import (
	"context"

	"github.com/gota-app/expense-ledger/internal/domain/event"
)

// Notifier pushes domain events to connected clients. Implementations
// must be fire-and-forget: a delivery failure is logged, never returned
// to the caller, so ledger writes do not depend on notification health.
type Notifier interface {
	NotifyGroup(ctx context.Context, groupID string, evt *event.Event)
	NotifyUser(ctx context.Context, userID string, evt *event.Event)
}
