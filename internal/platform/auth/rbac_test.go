package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func withRoles(roles ...string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/tickets/1/status", nil)
	if roles != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequireRole_Allowed(t *testing.T) {
	if err := RequireRole(RoleStaff)(ok)(withRoles(RoleStaff)); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRequireRole_AdminAlwaysPasses(t *testing.T) {
	if err := RequireRole(RoleStaff)(ok)(withRoles(RoleAdmin)); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	err := RequireRole(RoleStaff)(ok)(withRoles("patient"))
	httpErr, isHTTP := err.(*echo.HTTPError)
	if !isHTTP || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	err := RequireRole(RoleStaff)(ok)(withRoles())
	if httpErr, isHTTP := err.(*echo.HTTPError); !isHTTP || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
