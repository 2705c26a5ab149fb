package notifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// MemoryNotifier is an in-process ChangeNotifier used when no broker is configured.
type MemoryNotifier struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	logger *slog.Logger
}

var _ domain.ChangeNotifier = (*MemoryNotifier)(nil)

func NewMemoryNotifier(logger *slog.Logger) *MemoryNotifier {
	return &MemoryNotifier{
		subs:   make(map[uint64]*subscription),
		logger: logger.With("component", "memory_notifier"),
	}
}

func (n *MemoryNotifier) Publish(ctx context.Context, evt domain.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subs {
		sub.push(evt)
	}
	n.logger.DebugContext(ctx, "Change event published", "event_id", evt.ID, "type", evt.Type, "subscribers", len(n.subs))
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, filter domain.ChangeFilter) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	sub := newSubscription(ctx, filter, func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	})
	n.subs[id] = sub
	return sub, nil
}

// Subscribers reports the number of open subscriptions.
func (n *MemoryNotifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
