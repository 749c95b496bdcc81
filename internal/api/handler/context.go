package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/api/middleware"
	"github.com/atendimento/servicedesk/internal/core/domain"
)

// currentPrincipal returns the security context or a 401 when the Gatekeeper
// did not attach one.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication context")
	}
	return p, nil
}
