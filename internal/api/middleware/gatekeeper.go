package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
	"github.com/atendimento/servicedesk/internal/pkg/metrics"
)

// Gatekeeper authenticates and coarse-authorizes every request:
// classify the route, pass public routes untouched, otherwise require a
// valid bearer access token, rebuild the principal from storage, and check
// the route's roles against the stored role.
type Gatekeeper struct {
	policy     *Policy
	tokens     ports.TokenVerifier
	identities ports.IdentityResolver
	audit      ports.AuthEventRecorder
	log        zerolog.Logger
	now        func() time.Time
}

// GatekeeperOption customises a Gatekeeper.
type GatekeeperOption func(*Gatekeeper)

// WithClock overrides the time source used for token expiry and timestamps.
func WithClock(now func() time.Time) GatekeeperOption {
	return func(g *Gatekeeper) { g.now = now }
}

// WithAudit records rejected tokens and denied requests.
func WithAudit(rec ports.AuthEventRecorder) GatekeeperOption {
	return func(g *Gatekeeper) { g.audit = rec }
}

func NewGatekeeper(policy *Policy, tokens ports.TokenVerifier, identities ports.IdentityResolver, log zerolog.Logger, opts ...GatekeeperOption) *Gatekeeper {
	g := &Gatekeeper{
		policy:     policy,
		tokens:     tokens,
		identities: identities,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware returns the echo middleware. Mount it with e.Use so it sees
// every route, including unknown ones.
func (g *Gatekeeper) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			access, pattern := g.policy.Classify(routedPath(c))
			if access.Public {
				c.Set(routeAuthorizedKey, true)
				return next(c)
			}

			raw, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return g.unauthorized(c, "", "missing")
			}

			now := g.now()
			claims, err := g.tokens.ParseAccess(raw, now)
			if err != nil {
				if !domain.IsTokenError(err) {
					return g.internalError(c, err)
				}
				return g.unauthorized(c, "", domain.TokenErrorReason(err))
			}

			principal, err := g.identities.Resolve(req.Context(), claims.Subject)
			switch {
			case errors.Is(err, domain.ErrUserNotFound):
				return g.unauthorized(c, claims.Subject, "unknown_subject")
			case err != nil:
				return g.internalError(c, err)
			case principal.Locked:
				return g.unauthorized(c, claims.Subject, "locked")
			}

			if principal.Role != claims.Role {
				g.log.Debug().
					Str("subject", principal.Subject).
					Str("token_role", string(claims.Role)).
					Str("stored_role", string(principal.Role)).
					Msg("token role is stale, using stored role")
			}

			if !access.Permits(principal.Role) {
				metrics.AccessDeniedTotal.WithLabelValues("route").Inc()
				g.record(c, domain.EventAccessDenied, principal.Subject, pattern)
				g.log.Warn().
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Str("subject", principal.Subject).
					Str("role", string(principal.Role)).
					Str("required", access.String()).
					Msg("access denied")
				return reject(c, http.StatusForbidden, now)
			}

			SetPrincipal(c, principal)
			c.Set(routeAuthorizedKey, true)
			return next(c)
		}
	}
}

// routedPath is the path echo dispatched the request on: the registered
// route pattern when one matched, otherwise the raw request path. The decoded
// URL.Path is not used because "%2F.." segments collapse into a different
// route once decoded and cleaned.
func routedPath(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return echo.GetPath(c.Request())
}

// bearerToken extracts the credential from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func (g *Gatekeeper) unauthorized(c echo.Context, subject, reason string) error {
	req := c.Request()
	metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
	g.record(c, domain.EventTokenRejected, subject, reason)

	evt := g.log.Warn().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("remote_ip", c.RealIP()).
		Str("reason", reason)
	if subject != "" {
		evt = evt.Str("subject", subject)
	}
	evt.Msg("request not authenticated")

	return reject(c, http.StatusUnauthorized, g.now())
}

func (g *Gatekeeper) internalError(c echo.Context, err error) error {
	req := c.Request()
	g.log.Error().
		Err(err).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("remote_ip", c.RealIP()).
		Msg("authentication failed unexpectedly")
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error", g.now()))
}

func (g *Gatekeeper) record(c echo.Context, typ domain.AuthEventType, subject, reason string) {
	if g.audit == nil {
		return
	}
	g.audit.Record(domain.AuthEvent{
		Type:       typ,
		Subject:    subject,
		Reason:     reason,
		RemoteAddr: c.RealIP(),
		OccurredAt: g.now().UTC(),
	})
}
