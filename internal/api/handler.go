// Package api provides HTTP handlers for the chat widget API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/chameleon/internal/i18n"
	"github.com/ashureev/chameleon/internal/identity"
	"github.com/ashureev/chameleon/internal/session"
	"github.com/ashureev/chameleon/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo        store.Repository
	sessions    *session.Registry
	defaultLang i18n.Language
	logger      *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, sessions *session.Registry, defaultLang i18n.Language, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:        repo,
		sessions:    sessions,
		defaultLang: defaultLang,
		logger:      logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ResolveLanguage picks the language for a request: the lang query
// parameter, then the visitor's stored choice, then Accept-Language, then
// fallback.
func ResolveLanguage(r *http.Request, fallback i18n.Language) i18n.Language {
	return i18n.Resolve(fallback,
		i18n.CodeCandidate(r.URL.Query().Get("lang")),
		i18n.CodeCandidate(identity.StoredLanguageFromContext(r.Context())),
		i18n.AcceptLanguageCandidate(r.Header.Get("Accept-Language")),
	)
}
