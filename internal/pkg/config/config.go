package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

const minSecretLength = 32

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Auth  AuthConfig
	Audit AuditConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET, required"`
	Issuer            string        `env:"JWT_ISSUER,         default=servicedesk"`
	AccessTokenTTL    time.Duration `env:"JWT_ACCESS_TTL,     default=15m"`
	RefreshTokenTTL   time.Duration `env:"JWT_REFRESH_TTL,    default=168h"`
	BcryptCost        int           `env:"BCRYPT_COST,        default=12"`
	RegistrationRoles []string      `env:"REGISTRATION_ROLES, default=USER,ADMIN"`
	IdentityCacheTTL  time.Duration `env:"IDENTITY_CACHE_TTL, default=30s"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=servicedesk"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects settings the auth layer cannot run safely with.
func (c *Config) Validate() error {
	var errs []error
	a := c.Auth

	if len(a.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if a.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if a.RefreshTokenTTL < a.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL"))
	}

	minCost := 4
	if c.IsProduction() {
		minCost = 10
	}
	if a.BcryptCost < minCost || a.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, 31]", minCost))
	}
	if a.IdentityCacheTTL < 0 {
		errs = append(errs, errors.New("IDENTITY_CACHE_TTL must not be negative"))
	}
	if _, err := a.RegistrationRoleSet(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RegistrationRoleSet parses REGISTRATION_ROLES.
func (a AuthConfig) RegistrationRoleSet() ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(a.RegistrationRoles))
	for _, s := range a.RegistrationRoles {
		r, ok := domain.ParseRole(s)
		if !ok {
			return nil, fmt.Errorf("REGISTRATION_ROLES: unknown role %q", s)
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, errors.New("REGISTRATION_ROLES must name at least one role")
	}
	return roles, nil
}
