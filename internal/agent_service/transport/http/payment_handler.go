package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// MaxRequestBodySize caps webhook bodies.
const MaxRequestBodySize = 1 << 20 // 1 MB

// SignatureHeader carries the payment provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// PaymentFlow is implemented by app.PaymentService.
type PaymentFlow interface {
	CreateCheckout(ctx context.Context, req domain.ProvisioningRequest) (*domain.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentHandler struct {
	payments PaymentFlow
	logger   *slog.Logger
	validate *validator.Validate
}

func NewPaymentHandler(payments PaymentFlow, logger *slog.Logger, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger.With("handler", "payments"),
		validate: validate,
	}
}

// RegisterRoutes sets up the checkout route. The webhook is mounted
// separately because it must stay outside bearer authentication.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.CreateCheckout)
}

func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ProvisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	requesterID, code, msg := resolveRequester(r, reqDTO.UserID)
	if code != 0 {
		respondWithError(w, code, msg)
		return
	}

	sess, err := h.payments.CreateCheckout(ctx, reqDTO.toDomain(requesterID))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Error creating checkout session", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}
	respondWithJSON(w, http.StatusOK, CheckoutResponseDTO{URL: sess.URL})
}

// HandleWebhook passes the raw, unparsed body to signature verification.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to read webhook body", "error", err)
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.payments.HandleWebhook(ctx, payload, r.Header.Get(SignatureHeader)); err != nil {
		if errors.Is(err, domain.ErrSignatureVerification) {
			respondWithError(w, http.StatusBadRequest, "Webhook signature verification failed")
			return
		}
		h.logger.ErrorContext(ctx, "Webhook handling failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Webhook handling failed")
		return
	}
	respondWithJSON(w, http.StatusOK, WebhookAckDTO{Received: true})
}
