package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/contractor-agent/golang_services/internal/agent_service/middleware"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, GenericErrorResponse{Error: message})
}

// resolveRequester picks the requester id for a body-supplied user id. An
// authenticated caller may omit it or pass its own id or email; anything
// else is forbidden. Without auth the body value is used as is.
func resolveRequester(r *http.Request, bodyUserID string) (string, int, string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		if bodyUserID == "" {
			return "", http.StatusBadRequest, "User ID is required"
		}
		return bodyUserID, 0, ""
	}
	switch bodyUserID {
	case "":
		return user.ID, 0, ""
	case user.ID:
		return user.ID, 0, ""
	}
	if user.Email != "" && bodyUserID == user.Email {
		return bodyUserID, 0, ""
	}
	return "", http.StatusForbidden, "user_id does not match the authenticated user"
}
