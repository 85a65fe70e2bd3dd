package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opencampus/discusshub/internal/app/system/auth"
	"go.uber.org/zap"
)

func initTestStore(t *testing.T) {
	t.Helper()
	logger := zap.NewNop()
	if err := auth.InitSessionStore(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		false,
		logger,
	); err != nil {
		t.Fatalf("failed to init session store: %v", err)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	handler := auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/discussion/v1/threads", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	called := false
	handler := auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/discussion/v1/threads", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Username: "mod"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestSignIn_RoundTripsThroughSessionCookie(t *testing.T) {
	initTestStore(t)

	// Sign in and capture the cookie.
	signinReq := httptest.NewRequest("POST", "/login", nil)
	signinRec := httptest.NewRecorder()
	u := &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Username: "alice", IsStaff: true}
	if err := auth.SignIn(signinRec, signinReq, u); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := signinRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie to be set")
	}

	// Replay the cookie through LoadSessionUser.
	var got *auth.SessionUser
	handler := auth.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/discussion/v1/threads", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected a user in context after session load")
	}
	if got.ID != u.ID || got.Username != "alice" || !got.IsStaff {
		t.Errorf("session user mismatch: got %+v", got)
	}
}

func TestSignOut_ClearsSession(t *testing.T) {
	initTestStore(t)

	signinReq := httptest.NewRequest("POST", "/login", nil)
	signinRec := httptest.NewRecorder()
	if err := auth.SignIn(signinRec, signinReq, &auth.SessionUser{ID: "x", Username: "y"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	signoutReq := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range signinRec.Result().Cookies() {
		signoutReq.AddCookie(c)
	}
	signoutRec := httptest.NewRecorder()
	if err := auth.SignOut(signoutRec, signoutReq); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	var found bool
	for _, c := range signoutRec.Result().Cookies() {
		if c.Name == auth.SessionName && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be expired on sign-out")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)

	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}
