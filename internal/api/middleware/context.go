package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

const (
	principalKey       = "principal"
	routeAuthorizedKey = "route_authorized"
)

// PrincipalFrom returns the security context attached by the Gatekeeper.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

// SetPrincipal attaches p as the request's security context.
func SetPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}

// routeAuthorized reports whether the Gatekeeper let this request through.
func routeAuthorized(c echo.Context) bool {
	ok, _ := c.Get(routeAuthorizedKey).(bool)
	return ok
}
