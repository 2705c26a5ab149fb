package domain

import (
	"context"

	"github.com/google/uuid"
)

// ScriptSynthesizer turns caller questions into a conversation script.
type ScriptSynthesizer interface {
	Synthesize(ctx context.Context, questions []string) (ConversationScript, error)
}

// ResourceProvisioner creates the LLM config, agent, and phone number on the voice platform.
type ResourceProvisioner interface {
	Provision(ctx context.Context, script ConversationScript) (*ProvisionResult, error)
}

// AgentRepository persists agent records.
type AgentRepository interface {
	// Upsert inserts or replaces the record whose PhoneNumber matches, and
	// reports which of the two happened. It must be atomic per phone number.
	Upsert(ctx context.Context, rec *AgentRecord) (ChangeType, error)
	Insert(ctx context.Context, rec *AgentRecord) (*AgentRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*AgentRecord, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*AgentRecord, error)
	ListByUserID(ctx context.Context, userID string) ([]*AgentRecord, error)
}

// ProfileRepository is the narrow view of the auth subsystem's profile store.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	UpdatePlan(ctx context.Context, id string, plan Plan) error
}

// CheckoutSession is what the payment provider hands back on creation.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentEventType is the provider's event type string.
type PaymentEventType string

// PaymentEventCheckoutCompleted is the only event that triggers provisioning.
const PaymentEventCheckoutCompleted PaymentEventType = "checkout.session.completed"

// PaymentEvent is a verified callback from the payment provider. Request is
// set only for completed checkouts.
type PaymentEvent struct {
	ID        string
	Type      PaymentEventType
	SessionID string
	Request   *ProvisioningRequest
}

// PaymentGateway creates checkout sessions and authenticates their callbacks.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req ProvisioningRequest) (*CheckoutSession, error)
	// ParseWebhook must verify signature against the raw, untouched payload
	// and return an error wrapping ErrSignatureVerification on mismatch.
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)
}

// Subscription is a lazy, unbounded, non-restartable stream of change events.
// The channel is closed after Close or when the subscribing context ends.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// ChangeNotifier is the publish/subscribe channel over the record store.
type ChangeNotifier interface {
	Publish(ctx context.Context, evt ChangeEvent) error
	Subscribe(ctx context.Context, filter ChangeFilter) (Subscription, error)
}
