// @title           Service Desk API
// @version         1.0
// @description     Authentication, access control and service request endpoints of the service desk.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/api"
	"github.com/atendimento/servicedesk/internal/api/handler"
	"github.com/atendimento/servicedesk/internal/api/middleware"
	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
	"github.com/atendimento/servicedesk/internal/core/service"
	mongodb "github.com/atendimento/servicedesk/internal/infrastructure/db/mongo"
	redisdb "github.com/atendimento/servicedesk/internal/infrastructure/db/redis"
	"github.com/atendimento/servicedesk/internal/infrastructure/queue"
	"github.com/atendimento/servicedesk/internal/infrastructure/security"
	"github.com/atendimento/servicedesk/internal/pkg/config"
	"github.com/atendimento/servicedesk/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{Service: "servicedesk"})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "servicedesk",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "servicedesk",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	authRepo := mongodb.NewAuthRepository(db)
	srRepo := mongodb.NewServiceRequestRepository(db)
	eventRepo := mongodb.NewEventRepository(db)
	if err := mongodb.EnsureIndexes(ctx, authRepo, srRepo, eventRepo); err != nil {
		return err
	}

	// --- Security primitives ---
	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := security.NewTokenCodec(security.TokenConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}
	roles, err := cfg.Auth.RegistrationRoleSet()
	if err != nil {
		return err
	}
	if slices.Contains(roles, domain.RoleAdmin) {
		log.Warn().Msg("ADMIN is self-registrable through /auth/register; set REGISTRATION_ROLES to restrict it")
	}

	// --- Audit trail ---
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, eventRepo, log)
	dispatcher.Start(dispatcherCtx)
	defer func() {
		cancelDispatcher()
		dispatcher.Wait()
	}()

	// --- Services ---
	var cache ports.IdentityCache
	if cfg.Auth.IdentityCacheTTL > 0 {
		cache = redisdb.NewIdentityCache(rdb, cfg.Auth.IdentityCacheTTL)
	}
	identities := service.NewIdentityResolver(authRepo, cache, log)
	authService := service.NewAuthService(authRepo, hasher, codec, log,
		service.WithRegistrationRoles(roles...),
		service.WithAuditRecorder(dispatcher),
	)
	adminService := service.NewUserAdminService(authRepo, identities, dispatcher, log)
	srService := service.NewServiceRequestService(srRepo, log)

	policy := middleware.DefaultPolicy()
	e := api.NewRouter(api.Dependencies{
		Log:             log,
		Policy:          policy,
		Gatekeeper:      middleware.NewGatekeeper(policy, codec, identities, log, middleware.WithAudit(dispatcher)),
		Auth:            authService,
		Admin:           adminService,
		ServiceRequests: srService,
		HealthChecks: map[string]handler.Check{
			"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Registerer: prometheus.DefaultRegisterer,
	})

	// --- Serve ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}
