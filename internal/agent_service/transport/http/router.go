package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/contractor-agent/golang_services/internal/agent_service/middleware"
)

// Handlers groups everything the router mounts. Profile may be nil when no
// profile store is configured.
type Handlers struct {
	Agents   *AgentHandler
	Payments *PaymentHandler
	Stream   *StreamHandler
	Profile  *ProfileHandler
}

// NewRouter builds the public HTTP API. A non-empty jwtSecret protects every
// route except the webhook and health check.
func NewRouter(h Handlers, jwtSecret string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(HTTPLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook", h.Payments.HandleWebhook)

	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(middleware.JWTAuth(jwtSecret, logger))
		}
		h.Agents.RegisterRoutes(r)
		h.Payments.RegisterRoutes(r)
		if h.Stream != nil {
			h.Stream.RegisterRoutes(r)
		}
		if h.Profile != nil {
			h.Profile.RegisterRoutes(r)
		}
	})
	return r
}

// HTTPLogger is a middleware that logs HTTP requests using slog.
func HTTPLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
				slog.String("remote_ip", r.RemoteAddr),
			)
		}
		return http.HandlerFunc(fn)
	}
}
