package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/pkg/metrics"
)

// RequireRoles is the handler-level role check, mounted per route behind the
// Gatekeeper. A request the Gatekeeper admitted but this check refuses means
// the route table and the handler disagree; that is logged as a
// configuration defect and answered with 403.
func RequireRoles(log zerolog.Logger, now func() time.Time, roles ...domain.Role) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if ok {
				if _, permitted := allowed[p.Role]; permitted {
					return next(c)
				}
			}

			req := c.Request()
			metrics.AccessDeniedTotal.WithLabelValues("handler").Inc()

			if routeAuthorized(c) {
				metrics.PolicyMismatchTotal.Inc()
				evt := log.Error().
					Err(domain.ErrPolicyMismatch).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Str("route", c.Path())
				if ok {
					evt = evt.Str("subject", p.Subject).Str("role", string(p.Role))
				}
				evt.Msg("handler refused a request the route table admitted")
			} else {
				log.Warn().
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Msg("handler role check reached without gatekeeper")
			}

			return reject(c, http.StatusForbidden, now())
		}
	}
}
