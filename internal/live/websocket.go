package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/chameleon/internal/chat"
	"github.com/ashureev/chameleon/internal/i18n"
	"github.com/ashureev/chameleon/internal/identity"
	"github.com/ashureev/chameleon/internal/middleware"
	"github.com/ashureev/chameleon/internal/session"
)

const (
	typeState    = "state"
	typeSubmit   = "submit"
	typeLanguage = "language"
	typePing     = "ping"
	typePong     = "pong"
	typeError    = "error"

	writeTimeout = 10 * time.Second
	maxReadBytes = 16 << 10
)

// inbound is a message from the widget.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type stateMessage struct {
	Type  string     `json:"type"`
	State chat.State `json:"state"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// LanguageResolver picks the starting language of a conversation.
type LanguageResolver func(r *http.Request) i18n.Language

// Handler upgrades widget connections and serves the conversation over them.
type Handler struct {
	sessions      *session.Registry
	hub           *Hub
	limiter       *middleware.RateLimiter
	resolve       LanguageResolver
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Sessions      *session.Registry
	Hub           *Hub
	Limiter       *middleware.RateLimiter
	Resolve       LanguageResolver
	AllowedOrigin string
	IsDev         bool
	Logger        *slog.Logger
}

// NewHandler creates a WebSocket handler and subscribes its hub to the
// registry. The returned function removes the subscription.
func NewHandler(cfg HandlerConfig) (*Handler, func()) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	if cfg.Resolve == nil {
		cfg.Resolve = func(*http.Request) i18n.Language { return i18n.Default }
	}
	h := &Handler{
		sessions:      cfg.Sessions,
		hub:           cfg.Hub,
		limiter:       cfg.Limiter,
		resolve:       cfg.Resolve,
		allowedOrigin: cfg.AllowedOrigin,
		isDev:         cfg.IsDev,
		logger:        cfg.Logger,
	}
	return h, cfg.Sessions.Subscribe(cfg.Hub.Publish)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionKey(r.Context())
	visitorID := identity.VisitorIDFromContext(r.Context())
	h.logger.Info("WebSocket connection request", "session", key, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "session", key)
		return
	}
	ws.SetReadLimit(maxReadBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session", key)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctrl, release := h.sessions.Pin(ctx, key, h.resolve(r))
	defer release()
	c := &client{conn: ws, send: make(chan []byte, sendBuffer)}
	h.hub.register(key, c)
	defer h.hub.unregister(key, c)

	go h.writeLoop(ctx, c, key)

	// The widget renders from the first frame without a separate fetch.
	h.hub.Publish(key, ctrl.State())

	h.readLoop(ctx, c, ctrl, key, visitorID)
	h.logger.Info("Live session ended", "session", key)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, c *client, ctrl *chat.Controller, key, visitorID string) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed by client", "session", key)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "session", key)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, errorMessage{Type: typeError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case typeSubmit:
			if h.limiter != nil && !h.limiter.Allow(visitorID) {
				h.reply(c, errorMessage{Type: typeError, Error: "rate limit exceeded"})
				continue
			}
			// Submit blocks until the answer arrives. The state push comes
			// through the hub. A closed socket does not cancel the answer or
			// the lead delivery; the collaborators own their timeouts.
			go func(text string) {
				if err := ctrl.Submit(context.WithoutCancel(ctx), text); err != nil {
					h.reply(c, errorMessage{Type: typeError, Error: submitError(err)})
				}
			}(msg.Content)
		case typeLanguage:
			lang, ok := i18n.Normalize(msg.Content)
			if !ok {
				h.reply(c, errorMessage{Type: typeError, Error: "unsupported language"})
				continue
			}
			ctrl.SetLanguage(lang)
		case typePing:
			h.reply(c, map[string]string{"type": typePong})
		default:
			h.reply(c, errorMessage{Type: typeError, Error: "unknown message type"})
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, c *client, key string) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Debug("WebSocket write error", "error", err, "session", key)
				}
				return
			}
		}
	}
}

func (h *Handler) reply(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func submitError(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return "message is empty"
	case errors.Is(err, chat.ErrBusy):
		return "previous message is still being answered"
	default:
		return "failed to process message"
	}
}
