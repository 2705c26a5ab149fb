package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/agent_service/middleware"
)

type ProfileHandler struct {
	profiles domain.ProfileRepository
	agents   domain.AgentRepository
	logger   *slog.Logger
}

func NewProfileHandler(profiles domain.ProfileRepository, agents domain.AgentRepository, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, agents: agents, logger: logger.With("handler", "profile")}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.GetProfile)
}

// GetProfile returns the caller's profile with its most recent agent embedded.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.profiles.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load profile", "user_id", user.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	agents, err := h.agents.ListByUserID(ctx, profile.ID)
	if err == nil && len(agents) == 0 && profile.Email != "" {
		// Checkouts keyed by email store the email as the agent's user id.
		agents, err = h.agents.ListByUserID(ctx, profile.Email)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load profile agent", "user_id", user.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if len(agents) > 0 {
		profile.Agent = agents[0]
	}
	respondWithJSON(w, http.StatusOK, profile)
}
