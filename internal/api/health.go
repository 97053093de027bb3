package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports database and answer service health.
type HealthHandler struct {
	*Handler
	answer HealthChecker
}

// NewHealthHandler creates a health handler. answer may be nil.
func NewHealthHandler(base *Handler, answer HealthChecker) *HealthHandler {
	return &HealthHandler{Handler: base, answer: answer}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health pings the dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ok", "database": "ok"}

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			h.logger.Error("Database health check failed", "error", err)
			body["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.answer != nil {
		body["answer_service"] = "ok"
		if err := h.answer.Health(ctx); err != nil {
			h.logger.Warn("Answer service health check failed", "error", err)
			body["answer_service"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	JSON(w, status, body)
}
