package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/atendimento/servicedesk/docs"
	"github.com/atendimento/servicedesk/internal/api/handler"
	"github.com/atendimento/servicedesk/internal/api/middleware"
	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
	"github.com/atendimento/servicedesk/internal/pkg/metrics"
)

// Dependencies is everything the HTTP layer needs. Registerer may be nil to
// skip HTTP request metrics (tests build many routers in one process).
type Dependencies struct {
	Log             zerolog.Logger
	Policy          *middleware.Policy
	Gatekeeper      *middleware.Gatekeeper
	Auth            ports.AuthService
	Admin           ports.UserAdminService
	ServiceRequests ports.ServiceRequestService
	HealthChecks    map[string]handler.Check
	Registerer      prometheus.Registerer
	Now             func() time.Time
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, deps.Now)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))
	if deps.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "servicedesk",
			Subsystem:  "http",
			Registerer: deps.Registerer,
		}))
	}
	// The gatekeeper runs after routing so unknown paths are classified too.
	e.Use(deps.Gatekeeper.Middleware())

	r := &routes{e: e, policy: deps.Policy, log: deps.Log, now: deps.Now}

	// --- Auth routes (public) ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Now)
	r.add(http.MethodPost, "/auth/register", authHandler.Register)
	r.add(http.MethodPost, "/auth/login", authHandler.Login)
	r.add(http.MethodPost, "/auth/refresh", authHandler.Refresh)

	// --- Any authenticated role ---
	r.add(http.MethodGet, "/me", authHandler.Me)

	// --- Admin ---
	adminHandler := handler.NewAdminHandler(deps.Admin)
	r.add(http.MethodPatch, "/admin/users/:username/lock", adminHandler.Lock, domain.RoleAdmin)
	r.add(http.MethodPatch, "/admin/users/:username/unlock", adminHandler.Unlock, domain.RoleAdmin)
	r.add(http.MethodPatch, "/admin/users/:username/role", adminHandler.ChangeRole, domain.RoleAdmin)

	// --- Service requests ---
	srHandler := handler.NewServiceRequestHandler(deps.ServiceRequests)
	r.add(http.MethodPost, "/service-requests", srHandler.Create, domain.RoleUser, domain.RoleAdmin)
	r.add(http.MethodGet, "/service-requests/protocol/:protocol", srHandler.GetByProtocol, domain.RoleUser, domain.RoleAdmin)
	r.add(http.MethodPatch, "/supervisor/service-requests/:protocol", srHandler.UpdateDescription, domain.RoleSupervisor)

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)
	r.add(http.MethodGet, "/health", healthHandler.Liveness)            // liveness  – is the process alive?
	r.add(http.MethodGet, "/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	r.add(http.MethodGet, "/metrics", echoprometheus.NewHandler())
	r.add(http.MethodGet, "/swagger/*", echoSwagger.WrapHandler)

	return e
}

type routes struct {
	e      *echo.Echo
	policy *middleware.Policy
	log    zerolog.Logger
	now    func() time.Time
}

// add registers a route and mounts the handler-level role check when roles
// are given. The declared roles are compared with the route table up front;
// a disagreement is logged but the route is still served, and the request
// time checks keep rejecting what either side refuses.
func (r *routes) add(method, path string, h echo.HandlerFunc, roles ...domain.Role) {
	access, _ := r.policy.Classify(path)
	if len(roles) > 0 || !access.Public {
		if err := r.policy.Verify(path, roles); err != nil {
			metrics.PolicyMismatchTotal.Inc()
			r.log.Error().Err(err).Str("method", method).Str("route", path).Msg("route registered with mismatched access policy")
		}
	}

	var mws []echo.MiddlewareFunc
	if len(roles) > 0 {
		mws = append(mws, middleware.RequireRoles(r.log, r.now, roles...))
	}
	r.e.Add(method, path, h, mws...)
}

// requestLogger writes one zerolog line per request. Headers are not logged
// so bearer tokens never reach the log.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("remote_ip", v.RemoteIP).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
