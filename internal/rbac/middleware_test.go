package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/shared"
	"github.com/gatehouse/gatehouse/internal/token"
	_ "github.com/gatehouse/gatehouse/testing"
)

func requestWithPermissions(t *testing.T, permissions string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	claims := &token.Claims{Permissions: permissions}
	return req.WithContext(shared.ContextWithClaims(req.Context(), claims))
}

func runFilter(t *testing.T, req *http.Request, required ...string) (int, bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	res := httptest.NewRecorder()
	rbac.Middleware{}.RequireAny(required...)(next).ServeHTTP(res, req)
	return res.Code, reached
}

func TestRequireAnySatisfiedByOnePermission(t *testing.T) {
	code, reached := runFilter(t, requestWithPermissions(t, "b"), "a", "b")
	if code != http.StatusOK || !reached {
		t.Fatalf("expected pass-through, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyDeniesWithoutMatch(t *testing.T) {
	code, reached := runFilter(t, requestWithPermissions(t, "c"), "a", "b")
	if code != http.StatusForbidden || reached {
		t.Fatalf("expected denial, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyNoDeclarationAllowsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/open", nil)
	code, reached := runFilter(t, req)
	if code != http.StatusOK || !reached {
		t.Fatalf("expected pass-through, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyDeniesUnauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	code, reached := runFilter(t, req, "a")
	if code != http.StatusForbidden || reached {
		t.Fatalf("expected denial, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyCommaSeparatedDeclaration(t *testing.T) {
	code, reached := runFilter(t, requestWithPermissions(t, "users.show,roles.index"), "roles.index,roles.show")
	if code != http.StatusOK || !reached {
		t.Fatalf("expected pass-through, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyCaseSensitive(t *testing.T) {
	code, reached := runFilter(t, requestWithPermissions(t, "Users.Show"), "users.show")
	if code != http.StatusForbidden || reached {
		t.Fatalf("expected denial for case mismatch, got code=%d reached=%v", code, reached)
	}
}

func TestRequireAnyDeduplicatesHeldClaim(t *testing.T) {
	code, reached := runFilter(t, requestWithPermissions(t, "a,a,a"), "a")
	if code != http.StatusOK || !reached {
		t.Fatalf("expected pass-through, got code=%d reached=%v", code, reached)
	}
}
