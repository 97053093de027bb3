// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/store"
)

const (
	VisitorCookieName     = "chameleon_visitor"
	SessionHeaderName     = "X-Chameleon-Session-ID"
	DefaultSessionIDValue = "default"
	visitorCookieMaxAge   = 30 * 24 * time.Hour
)

type contextKey int

const (
	visitorIDKey contextKey = iota
	sessionIDKey
	languageKey
)

var (
	visitorIDPattern = regexp.MustCompile(`^v_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// VisitorIDFromContext extracts the visitor ID from the request context.
func VisitorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(visitorIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// StoredLanguageFromContext returns the language last chosen by the visitor,
// or "" when none was recorded.
func StoredLanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(languageKey).(string); ok {
		return v
	}
	return ""
}

// WithIdentity returns a context carrying the given visitor and session.
func WithIdentity(ctx context.Context, visitorID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, visitorIDKey, visitorID)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

// SessionKey identifies one conversation: a visitor and a browser tab.
func SessionKey(ctx context.Context) string {
	return VisitorIDFromContext(ctx) + "/" + SessionIDFromContext(ctx)
}

func generateVisitorID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate visitor id: %w", err)
	}
	return "v_" + hex.EncodeToString(buf), nil
}

func isValidVisitorID(id string) bool {
	return visitorIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// ensureVisitor creates the visitor on first sight, otherwise bumps
// last_seen_at. It returns the stored language.
func ensureVisitor(ctx context.Context, repo store.Repository, visitorID string) (string, error) {
	visitor, err := repo.GetVisitor(ctx, visitorID)
	if err != nil {
		return "", err
	}
	now := time.Now()
	if visitor != nil {
		if err := repo.UpdateLastSeen(ctx, visitorID, now); err != nil {
			return "", err
		}
		return visitor.Language, nil
	}

	return "", repo.UpsertVisitor(ctx, &domain.Visitor{
		VisitorID:  visitorID,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func setVisitorCookie(w http.ResponseWriter, id string, isDev bool) {
	// The widget runs in a third-party iframe in production.
	sameSite := http.SameSiteNoneMode
	if isDev {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(visitorCookieMaxAge),
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   !isDev,
	})
}

func getOrCreateVisitorID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(VisitorCookieName); err == nil && isValidVisitorID(c.Value) {
		setVisitorCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateVisitorID()
	if err != nil {
		return "", err
	}
	setVisitorCookie(w, id, isDev)
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware injects the anonymous visitor identity and per-tab session ID.
// A nil repo skips visitor persistence.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID, err := getOrCreateVisitorID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish visitor identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithIdentity(r.Context(), visitorID, sessionIDFromRequest(r))

			if repo != nil {
				lang, err := ensureVisitor(r.Context(), repo, visitorID)
				if err != nil {
					slog.Error("Failed to initialize visitor", "visitor_id", visitorID, "error", err)
					http.Error(w, `{"error":"failed to initialize visitor"}`, http.StatusInternalServerError)
					return
				}
				if lang != "" {
					ctx = context.WithValue(ctx, languageKey, lang)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for rate limiting and tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
