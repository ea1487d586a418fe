package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 chars

type staticFetcher struct {
	users map[string]*SessionUser
}

func (f *staticFetcher) FetchUser(_ context.Context, userID string) *SessionUser {
	return f.users[userID]
}

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(testKey, "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return sm
}

func TestNewSessionManager_KeyValidation(t *testing.T) {
	if _, err := NewSessionManager("", "", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("empty key should be rejected")
	}
	if _, err := NewSessionManager("short", "", "", time.Hour, true, zap.NewNop()); err == nil {
		t.Error("weak key should be rejected in secure mode")
	}
	// Weak keys pass in dev mode with a warning.
	if _, err := NewSessionManager("short", "", "", time.Hour, false, zap.NewNop()); err != nil {
		t.Errorf("weak key in dev mode error = %v", err)
	}
}

func TestSessionManager_SignInRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	sm.SetUserFetcher(&staticFetcher{users: map[string]*SessionUser{
		"u-1": {ID: "u-1", Username: "alice", RootFolderID: "r-1", SharedRootFolderID: "s-1"},
	}})

	// Sign in and capture the cookie.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := sm.SignIn(rec, req, "u-1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if cookie == "" {
		t.Fatal("SignIn() set no cookie")
	}

	var seen *SessionUser
	handler := sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r)
	})))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Username != "alice" || seen.RootFolderID != "r-1" {
		t.Errorf("CurrentUser() = %+v, want alice", seen)
	}
}

func TestSessionManager_RequireSignedIn(t *testing.T) {
	sm := newTestManager(t)
	sm.SetUserFetcher(&staticFetcher{users: map[string]*SessionUser{}})

	handler := sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a session")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
}

func TestSessionManager_DeletedUserInvalidatesSession(t *testing.T) {
	sm := newTestManager(t)
	fetcher := &staticFetcher{users: map[string]*SessionUser{
		"u-1": {ID: "u-1", Username: "alice"},
	}}
	sm.SetUserFetcher(fetcher)

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "u-1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	cookie := rec.Header().Get("Set-Cookie")

	// Account vanishes between requests.
	delete(fetcher.users, "u-1")

	handler := sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for a deleted user")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSessionManager_SignOut(t *testing.T) {
	sm := newTestManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := sm.SignIn(rec, req, "u-1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	cookie := rec.Header().Get("Set-Cookie")

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Cookie", cookie)
	rec = httptest.NewRecorder()
	sm.SignOut(rec, req)
	out := rec.Header().Get("Set-Cookie")
	if !strings.Contains(out, "Max-Age=0") && !strings.Contains(out, "01 Jan 1970") {
		t.Errorf("SignOut() cookie = %q, want expiry", out)
	}
}
