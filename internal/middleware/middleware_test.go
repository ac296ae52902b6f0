package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler records whether it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type verifierFunc func(string) (string, error)

func (f verifierFunc) Verify(token string) (string, error) { return f(token) }

func TestBearerAuth(t *testing.T) {
	verifier := verifierFunc(func(token string) (string, error) {
		if token == "good" {
			return "u1", nil
		}
		return "", errors.New("invalid or expired token")
	})

	tests := []struct {
		name       string
		header     string
		wantCalled bool
		wantCode   int
		wantBody   string
	}{
		{"no header", "", false, http.StatusUnauthorized, "missing bearer token"},
		{"basic scheme", "Basic Zm9vOmJhcg==", false, http.StatusUnauthorized, "missing bearer token"},
		{"empty token", "Bearer ", false, http.StatusUnauthorized, "missing bearer token"},
		{"bad token", "Bearer bad", false, http.StatusUnauthorized, "invalid or expired token"},
		{"good token", "Bearer good", true, http.StatusOK, ""},
		{"lower-case scheme", "bearer good", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(verifier)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			h.ServeHTTP(rec, req)

			if dummy.called != tt.wantCalled {
				t.Fatalf("called = %v, want %v", dummy.called, tt.wantCalled)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want to contain %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantCalled {
				if got := GetUserIDFromContext(dummy.ctx); got != "u1" {
					t.Errorf("user id = %q, want u1", got)
				}
			}
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	if got := GetUserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %q", got)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/categories", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["path"] != "/api/categories" || fields["request_id"] != "rid-1" {
		t.Errorf("fields = %v", fields)
	}
	if fields["bytes"] != int64(len("short and stout")) {
		t.Errorf("bytes = %v", fields["bytes"])
	}
}
