package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

// StreamHandler pushes agent change events to websocket clients.
type StreamHandler struct {
	notifier       domain.ChangeNotifier
	logger         *slog.Logger
	allowedOrigins []string
}

// NewStreamHandler builds the handler. allowedOrigins are host patterns passed
// to the websocket origin check; empty means same-origin only.
func NewStreamHandler(notifier domain.ChangeNotifier, logger *slog.Logger, allowedOrigins ...string) *StreamHandler {
	return &StreamHandler{
		notifier:       notifier,
		logger:         logger.With("handler", "agent_stream"),
		allowedOrigins: allowedOrigins,
	}
}

func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/agents/stream", h.Stream)
}

// Stream upgrades to a websocket and writes one JSON text frame per change to
// the caller's agent records until either side goes away.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, code, msg := resolveRequester(r, r.URL.Query().Get("user_id"))
	if code != 0 {
		respondWithError(w, code, msg)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.allowedOrigins})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	// Clients only listen; CloseRead cancels ctx when they disconnect.
	ctx := conn.CloseRead(r.Context())

	sub, err := h.notifier.Subscribe(ctx, domain.ChangeFilter{Table: domain.AgentsTable, UserID: userID})
	if err != nil {
		h.logger.ErrorContext(ctx, "Subscribe failed", "user_id", userID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	h.logger.InfoContext(ctx, "Change stream opened", "user_id", userID)
	if err := streamChanges(ctx, sub, conn); err != nil && ctx.Err() == nil {
		h.logger.WarnContext(ctx, "Change stream aborted", "user_id", userID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func streamChanges(ctx context.Context, sub domain.Subscription, writer wsWriter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}
