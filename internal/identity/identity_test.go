package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ashureev/chameleon/internal/store"
)

type seen struct {
	visitorID string
	sessionID string
	language  string
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, seen) {
	t.Helper()
	var got seen
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = seen{
			visitorID: VisitorIDFromContext(r.Context()),
			sessionID: SessionIDFromContext(r.Context()),
			language:  StoredLanguageFromContext(r.Context()),
		}
	})
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec, got
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == VisitorCookieName {
			return c
		}
	}
	t.Fatal("visitor cookie not set")
	return nil
}

func TestMiddlewareCreatesAndReusesVisitor(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "id.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer repo.Close()

	mw := Middleware(repo, false)

	rec, first := serve(t, mw, httptest.NewRequest(http.MethodGet, "/api/chat/state", nil))
	if !isValidVisitorID(first.visitorID) {
		t.Fatalf("expected generated visitor id, got %q", first.visitorID)
	}
	if first.sessionID != DefaultSessionIDValue {
		t.Fatalf("expected default session, got %q", first.sessionID)
	}
	cookie := visitorCookie(t, rec)
	if cookie.SameSite != http.SameSiteNoneMode || !cookie.Secure || !cookie.HttpOnly {
		t.Fatalf("expected embeddable secure cookie, got %+v", cookie)
	}

	v, err := repo.GetVisitor(context.Background(), first.visitorID)
	if err != nil || v == nil {
		t.Fatalf("expected persisted visitor, err=%v", err)
	}
	if err := repo.SetVisitorLanguage(context.Background(), first.visitorID, "it"); err != nil {
		t.Fatalf("SetVisitorLanguage failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/state", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: first.visitorID})
	req.Header.Set(SessionHeaderName, "tab-42")
	_, second := serve(t, mw, req)
	if second.visitorID != first.visitorID || second.sessionID != "tab-42" || second.language != "it" {
		t.Fatalf("unexpected identity on return visit: %+v", second)
	}
}

func TestMiddlewareRejectsMalformedValues(t *testing.T) {
	mw := Middleware(nil, true)

	req := httptest.NewRequest(http.MethodGet, "/?session_id=bad%20id%20%2F%2F", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "forged"})
	rec, got := serve(t, mw, req)

	if got.visitorID == "forged" || !isValidVisitorID(got.visitorID) {
		t.Fatalf("forged cookie must be replaced, got %q", got.visitorID)
	}
	if got.sessionID != DefaultSessionIDValue {
		t.Fatalf("malformed session id must fall back, got %q", got.sessionID)
	}
	if c := visitorCookie(t, rec); c.SameSite != http.SameSiteLaxMode || c.Secure {
		t.Fatalf("expected dev cookie, got %+v", c)
	}
}

func TestSessionIDFromQuery(t *testing.T) {
	_, got := serve(t, Middleware(nil, true), httptest.NewRequest(http.MethodGet, "/ws/chat?session_id=tab:1", nil))
	if got.sessionID != "tab:1" {
		t.Fatalf("expected query session id, got %q", got.sessionID)
	}
}

func TestSessionKey(t *testing.T) {
	ctx := WithIdentity(context.Background(), "v_1", "tab")
	if SessionKey(ctx) != "v_1/tab" {
		t.Fatalf("unexpected key %q", SessionKey(ctx))
	}
	if SessionIDFromContext(context.Background()) != DefaultSessionIDValue {
		t.Fatal("expected default session without identity")
	}
}
