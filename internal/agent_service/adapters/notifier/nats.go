package notifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/platform/messagebroker"
)

// SubjectPrefix is the NATS subject root for agent change events.
const SubjectPrefix = "agents.changes"

// SubjectForUser returns the per-user subject. User ids may contain '.', '@'
// or wildcards, so they are base64url-encoded into a single token.
func SubjectForUser(userID string) string {
	return SubjectPrefix + "." + base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// NATSNotifier fans change events out over NATS so every service replica
// and agentctl watcher sees them.
type NATSNotifier struct {
	client messagebroker.Client
	logger *slog.Logger
}

var _ domain.ChangeNotifier = (*NATSNotifier)(nil)

func NewNATSNotifier(client messagebroker.Client, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{client: client, logger: logger.With("component", "nats_notifier")}
}

func (n *NATSNotifier) Publish(ctx context.Context, evt domain.ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.client.Publish(ctx, SubjectForUser(evt.UserID), data)
}

func (n *NATSNotifier) Subscribe(ctx context.Context, filter domain.ChangeFilter) (domain.Subscription, error) {
	subject := SubjectPrefix + ".*"
	if filter.UserID != "" {
		subject = SubjectForUser(filter.UserID)
	}

	sub := newSubscription(ctx, filter, nil)
	brokerSub, err := n.client.Subscribe(ctx, subject, "", func(msg messagebroker.Message) {
		var evt domain.ChangeEvent
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			n.logger.Warn("Dropping malformed change event", "subject", msg.Subject(), "error", err)
			return
		}
		sub.push(evt)
	})
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	return &natsSubscription{subscription: sub, broker: brokerSub}, nil
}

// natsSubscription also drops the broker subscription on Close. Context
// cancellation is handled by the broker client itself.
type natsSubscription struct {
	*subscription
	broker messagebroker.Subscription
}

func (s *natsSubscription) Close() error {
	_ = s.subscription.Close()
	_ = s.broker.Unsubscribe()
	return nil
}
