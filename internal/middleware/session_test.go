package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionMiddleware_IssuesSessionWhenMissing(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetSessionIDFromContext(r.Context())
		if !ok {
			t.Fatalf("session id not in context")
		}
		gotID = id
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/shelters", nil)

	m.Middleware(next).ServeHTTP(w, r)

	if gotID == "" {
		t.Fatalf("empty session id issued")
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie set")
	}
}

func TestSessionMiddleware_ReusesValidCookie(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	first := httptest.NewRecorder()
	m.SetSessionCookie(first, "abc123")
	cookie := first.Result().Cookies()[0]

	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetSessionIDFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/shelters", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()

	m.Middleware(next).ServeHTTP(w, r)

	if gotID != "abc123" {
		t.Fatalf("session id = %q, want abc123", gotID)
	}

	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("valid session must not be reissued")
	}
}

func TestSessionMiddleware_RejectsTamperedCookie(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	forged := NewSessionMiddleware("other-secret")
	first := httptest.NewRecorder()
	forged.SetSessionCookie(first, "abc123")
	cookie := first.Result().Cookies()[0]

	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetSessionIDFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/shelters", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()

	m.Middleware(next).ServeHTTP(w, r)

	if gotID == "abc123" {
		t.Fatalf("forged session id must not be accepted")
	}
	if gotID == "" {
		t.Fatalf("new session must be issued instead of the forged one")
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatalf("replacement session cookie must be set")
	}
}
