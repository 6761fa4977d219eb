package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"appraise/internal/domain/auth"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("expected header %q to match context id %q", got, seen)
	}
}

func TestRequestIDHonorsInbound(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "req-abc" {
			t.Fatalf("expected inbound request id to be kept, got %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func withTestUser(t *testing.T, roleID string) context.Context {
	t.Helper()
	return WithUser(context.Background(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleID: roleID})
}

type staticPerms map[string]bool

func (p staticPerms) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	return p[roleID+":"+permission], nil
}

func TestRequirePermission(t *testing.T) {
	perms := staticPerms{"r1:reports.read": true}
	handler := RequirePermission("reports.read", perms)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	anon := httptest.NewRequest(http.MethodGet, "/api/v1/reports/progress", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, anon)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous request, got %d", rec.Code)
	}

	denied := anon.WithContext(withTestUser(t, "r2"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, denied)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for role without permission, got %d", rec.Code)
	}

	allowed := anon.WithContext(withTestUser(t, "r1"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, allowed)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for permitted role, got %d", rec.Code)
	}
}
