package paymentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const (
	productName        = "Contractor Agent Creation"
	productDescription = "Create your custom contractor agent with AI capabilities"

	// Stripe rejects metadata values longer than this.
	MaxMetadataValueLength = 500

	DefaultSignatureTolerance = 300 * time.Second
)

// Config configures the Stripe gateway. APIURL overrides the API host (for
// stripe-mock or tests); empty uses api.stripe.com.
type Config struct {
	SecretKey          string
	WebhookSecret      string
	APIURL             string
	PublicBaseURL      string
	PriceCents         int64
	Currency           string
	SignatureTolerance time.Duration
}

// StripeGateway implements domain.PaymentGateway on Stripe Checkout.
type StripeGateway struct {
	cfg      Config
	sessions session.Client
	logger   *slog.Logger
}

var _ domain.PaymentGateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg Config, logger *slog.Logger) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	if cfg.PriceCents <= 0 {
		cfg.PriceCents = 9900
	}
	if cfg.SignatureTolerance <= 0 {
		cfg.SignatureTolerance = DefaultSignatureTolerance
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	return &StripeGateway{
		cfg: cfg,
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		logger: logger.With("component", "stripe_gateway"),
	}
}

// CreateCheckout opens a one-item payment session whose metadata carries the
// provisioning request to the completion callback.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req domain.ProvisioningRequest) (*domain.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	envelope, err := domain.EncodeProvisioningRequest(req)
	if err != nil {
		return nil, err
	}
	questionsJSON := domain.EncodeQuestions(req.Questions)

	sessionMetadata := map[string]string{
		domain.MetadataKeyRequest:     envelope,
		domain.MetadataKeyQuestions:   questionsJSON,
		domain.MetadataKeyUserID:      req.RequesterID,
		domain.MetadataKeyPhoneNumber: req.ExistingPhoneNumber,
	}
	if err := checkMetadata(sessionMetadata); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(productName),
						Description: stripe.String(productDescription),
					},
					UnitAmount: stripe.Int64(g.cfg.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.cfg.PublicBaseURL + "/build-agent?success=true&questions=" + url.QueryEscape(questionsJSON)),
		CancelURL:         stripe.String(g.cfg.PublicBaseURL + "/build-agent?canceled=true"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{},
	}
	for k, v := range sessionMetadata {
		params.AddMetadata(k, v)
	}
	params.PaymentIntentData.AddMetadata(domain.MetadataKeyUserID, req.RequesterID)
	params.PaymentIntentData.AddMetadata(domain.MetadataKeyQuestions, questionsJSON)
	params.PaymentIntentData.AddMetadata(domain.MetadataKeyRequest, envelope)
	if strings.Contains(req.RequesterID, "@") {
		params.CustomerEmail = stripe.String(req.RequesterID)
	}

	sess, err := g.sessions.New(params)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to create checkout session", "error", err, "user_id", req.RequesterID)
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	g.logger.InfoContext(ctx, "Checkout session created", "session_id", sess.ID, "user_id", req.RequesterID)
	return &domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook authenticates payload against the signature header and, for
// completed checkouts, rebuilds the provisioning request from session metadata.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.cfg.SignatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureVerification, err)
	}

	out := &domain.PaymentEvent{ID: event.ID, Type: domain.PaymentEventType(event.Type)}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, errors.New("checkout event without data")
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding checkout session: %w", err)
	}
	req, err := domain.ProvisioningRequestFromMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}
	out.SessionID = sess.ID
	out.Request = &req
	return out, nil
}

func checkMetadata(md map[string]string) error {
	for k, v := range md {
		if len(v) > MaxMetadataValueLength {
			return domain.Validationf("metadata %q is %d characters, limit is %d", k, len(v), MaxMetadataValueLength)
		}
	}
	return nil
}
