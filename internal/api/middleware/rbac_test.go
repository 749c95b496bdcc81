package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

var rbacNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func runRequireRoles(t *testing.T, log zerolog.Logger, principal *domain.Principal, gatekeeperPassed bool, roles ...domain.Role) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if principal != nil {
		SetPrincipal(c, principal)
	}
	if gatekeeperPassed {
		c.Set(routeAuthorizedKey, true)
	}

	called := false
	h := RequireRoles(log, func() time.Time { return rbacNow }, roles...)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestRequireRoles_Allowed(t *testing.T) {
	rec, called := runRequireRoles(t, zerolog.Nop(), &domain.Principal{Subject: "root", Role: domain.RoleAdmin}, true, domain.RoleAdmin)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoles_MismatchIsLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	rec, called := runRequireRoles(t, log, &domain.Principal{Subject: "alice", Role: domain.RoleUser}, true, domain.RoleAdmin)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, domain.ErrPolicyMismatch.Error()) {
		t.Fatalf("expected policy mismatch error log, got %q", out)
	}
}

func TestRequireRoles_NoGatekeeper(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	rec, called := runRequireRoles(t, log, nil, false, domain.RoleAdmin)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("missing gatekeeper is not a route/handler mismatch: %q", buf.String())
	}
}

func TestRequireRoles_PublicPassWithRoleCheck(t *testing.T) {
	var buf bytes.Buffer
	rec, _ := runRequireRoles(t, zerolog.New(&buf), nil, true, domain.RoleUser)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("role check behind a public route is a configuration defect")
	}
}

func TestRequireRoles_RejectionUsesInjectedClock(t *testing.T) {
	rec, _ := runRequireRoles(t, zerolog.Nop(), &domain.Principal{Subject: "alice", Role: domain.RoleUser}, false, domain.RoleAdmin)
	if !strings.Contains(rec.Body.String(), `"timestamp":"2026-06-01 09:00:00"`) {
		t.Fatalf("expected injected timestamp, got %s", rec.Body.String())
	}
}
