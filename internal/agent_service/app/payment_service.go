package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// Runner is the subset of Orchestrator the payment flow needs.
type Runner interface {
	Run(ctx context.Context, req domain.ProvisioningRequest, entry domain.EntryPoint) (*domain.AgentRecord, error)
}

// PaymentService opens checkout sessions and turns verified completion
// callbacks into provisioning runs.
type PaymentService struct {
	gateway  domain.PaymentGateway
	runner   Runner
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

// NewPaymentService wires the payment flow. profiles may be nil, in which
// case completed checkouts do not touch the payer's plan.
func NewPaymentService(gateway domain.PaymentGateway, runner Runner, profiles domain.ProfileRepository, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		gateway:  gateway,
		runner:   runner,
		profiles: profiles,
		logger:   logger.With("component", "payment_service"),
	}
}

func (s *PaymentService) CreateCheckout(ctx context.Context, req domain.ProvisioningRequest) (*domain.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.gateway.CreateCheckout(ctx, req)
}

// HandleWebhook verifies a raw callback and, for a completed checkout,
// starts exactly one provisioning run. Only signature failures are returned;
// provisioning failures are logged and the callback is still acknowledged.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureVerification) {
			s.logger.WarnContext(ctx, "Rejected payment callback", "error", err)
			paymentWebhookEventsCounter.WithLabelValues("unknown", "signature_failed").Inc()
			return err
		}
		s.logger.ErrorContext(ctx, "Verified payment callback could not be decoded", "error", err)
		paymentWebhookEventsCounter.WithLabelValues("unknown", "malformed").Inc()
		return nil
	}

	logger := s.logger.With("event_id", evt.ID, "event_type", string(evt.Type))
	if evt.Type != domain.PaymentEventCheckoutCompleted {
		logger.DebugContext(ctx, "Ignoring payment event")
		paymentWebhookEventsCounter.WithLabelValues(string(evt.Type), "ignored").Inc()
		return nil
	}
	if evt.Request == nil {
		logger.ErrorContext(ctx, "Completed checkout without provisioning request")
		paymentWebhookEventsCounter.WithLabelValues(string(evt.Type), "malformed").Inc()
		return nil
	}

	// The provider may hang up before provisioning finishes; the run must not
	// be cancelled with it.
	runCtx := context.WithoutCancel(ctx)
	s.upgradePlan(runCtx, logger, evt.Request.RequesterID)

	rec, err := s.runner.Run(runCtx, *evt.Request, domain.EntryWebhook)
	if err != nil {
		logger.ErrorContext(runCtx, "Provisioning after payment failed", "session_id", evt.SessionID, "error", err)
		paymentWebhookEventsCounter.WithLabelValues(string(evt.Type), "run_failed").Inc()
		return nil
	}
	logger.InfoContext(runCtx, "Provisioned agent after payment", "session_id", evt.SessionID, "agent_record_id", rec.ID)
	paymentWebhookEventsCounter.WithLabelValues(string(evt.Type), "provisioned").Inc()
	return nil
}

// upgradePlan marks the payer's profile PAID. Requester ids that look like
// emails are looked up by email. Failures never block provisioning.
func (s *PaymentService) upgradePlan(ctx context.Context, logger *slog.Logger, requesterID string) {
	if s.profiles == nil || requesterID == "" {
		return
	}
	var (
		profile *domain.Profile
		err     error
	)
	if strings.Contains(requesterID, "@") {
		profile, err = s.profiles.GetByEmail(ctx, requesterID)
	} else {
		profile, err = s.profiles.GetByID(ctx, requesterID)
	}
	if err != nil {
		logger.WarnContext(ctx, "Could not load payer profile for plan upgrade", "user_id", requesterID, "error", err)
		return
	}
	if profile.Plan == domain.PlanPaid {
		return
	}
	if err := s.profiles.UpdatePlan(ctx, profile.ID, domain.PlanPaid); err != nil {
		logger.WarnContext(ctx, "Plan upgrade failed", "profile_id", profile.ID, "error", err)
		return
	}
	logger.InfoContext(ctx, "Profile upgraded", "profile_id", profile.ID, "plan", domain.PlanPaid)
}
