package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/agent_service/middleware"
)

// Runner starts a provisioning run; implemented by app.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req domain.ProvisioningRequest, entry domain.EntryPoint) (*domain.AgentRecord, error)
}

// AgentHandler serves direct provisioning and agent record management.
type AgentHandler struct {
	runner   Runner
	agents   domain.AgentRepository
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAgentHandler(runner Runner, agents domain.AgentRepository, logger *slog.Logger, validate *validator.Validate) *AgentHandler {
	return &AgentHandler{
		runner:   runner,
		agents:   agents,
		logger:   logger.With("handler", "agents"),
		validate: validate,
	}
}

// RegisterRoutes sets up agent routes.
func (h *AgentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/agents", h.CreateAgent)
	r.Get("/agents", h.ListAgents)
	r.Delete("/agents/{agentID}", h.DeleteAgent)
}

// CreateAgent provisions synchronously, bypassing payment.
func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
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

	rec, err := h.runner.Run(ctx, reqDTO.toDomain(requesterID), domain.EntryDirect)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Error creating agent", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create agent")
		return
	}

	respondWithJSON(w, http.StatusOK, CreateAgentResponseDTO{
		Success:     true,
		AgentID:     rec.RetellID,
		LLMID:       rec.LLMID,
		PhoneNumber: rec.TwilioPhoneNumber,
	})
}

func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, code, msg := resolveRequester(r, r.URL.Query().Get("user_id"))
	if code != 0 {
		respondWithError(w, code, msg)
		return
	}

	agents, err := h.agents.ListByUserID(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list agents", "user_id", userID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list agents")
		return
	}
	respondWithJSON(w, http.StatusOK, agents)
}

func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid agent ID format")
		return
	}

	if user, ok := middleware.UserFromContext(ctx); ok {
		rec, err := h.agents.GetByID(ctx, id)
		if err != nil {
			h.respondRepoError(w, r, err)
			return
		}
		if rec.UserID != user.ID && (user.Email == "" || rec.UserID != user.Email) {
			respondWithError(w, http.StatusNotFound, "Agent not found")
			return
		}
	}

	if err := h.agents.Delete(ctx, id); err != nil {
		h.respondRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AgentHandler) respondRepoError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Agent not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "Agent repository error", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
