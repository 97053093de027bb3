package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chameleon/internal/chat"
	"github.com/ashureev/chameleon/internal/i18n"
	"github.com/ashureev/chameleon/internal/identity"
)

const maxBodyBytes = 16 << 10

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	*Handler
	submitLimit func(http.Handler) http.Handler
}

// NewChatHandler creates a chat handler. submitLimit, if not nil, wraps the
// message endpoint.
func NewChatHandler(base *Handler, submitLimit func(http.Handler) http.Handler) *ChatHandler {
	return &ChatHandler{Handler: base, submitLimit: submitLimit}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/state", h.GetState)
		r.Put("/language", h.SetLanguage)
		r.Group(func(r chi.Router) {
			if h.submitLimit != nil {
				r.Use(h.submitLimit)
			}
			r.Post("/messages", h.PostMessage)
		})
	})
}

type configResponse struct {
	Language  i18n.Language   `json:"language"`
	Languages []i18n.Language `json:"languages"`
	Strings   i18n.Strings    `json:"strings"`
}

// GetConfig returns the localized widget strings.
func (h *ChatHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	lang := ResolveLanguage(r, h.defaultLang)
	JSON(w, http.StatusOK, configResponse{
		Language:  lang,
		Languages: i18n.Languages(),
		Strings:   i18n.Lookup(lang),
	})
}

// GetState returns the conversation of the calling tab, starting one if
// needed.
func (h *ChatHandler) GetState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.controller(r).State())
}

type messageRequest struct {
	Message string `json:"message"`
}

// PostMessage submits one user input and returns the resulting state.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctrl := h.controller(r)
	// A visitor leaving the page must not cancel the answer or the lead
	// delivery. The collaborators own their timeouts.
	err := ctrl.Submit(context.WithoutCancel(r.Context()), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "message is empty")
		return
	case errors.Is(err, chat.ErrBusy):
		Error(w, http.StatusConflict, "previous message is still being answered")
		return
	case err != nil:
		h.logger.Error("Submit failed", "session", identity.SessionKey(r.Context()), "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	JSON(w, http.StatusOK, ctrl.State())
}

type languageRequest struct {
	Language string `json:"language"`
}

// SetLanguage switches the conversation language. The message log is reset
// to the new greeting.
func (h *ChatHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lang, ok := i18n.Normalize(req.Language)
	if !ok {
		Error(w, http.StatusBadRequest, "unsupported language")
		return
	}

	ctrl := h.controller(r)
	ctrl.SetLanguage(lang)

	if visitorID := identity.VisitorIDFromContext(r.Context()); visitorID != "" && h.repo != nil {
		if err := h.repo.SetVisitorLanguage(r.Context(), visitorID, string(lang)); err != nil {
			h.logger.Warn("Failed to store visitor language", "visitor_id", visitorID, "error", err)
		}
	}

	JSON(w, http.StatusOK, ctrl.State())
}

func (h *ChatHandler) controller(r *http.Request) *chat.Controller {
	return h.sessions.Get(r.Context(), identity.SessionKey(r.Context()), ResolveLanguage(r, h.defaultLang))
}
