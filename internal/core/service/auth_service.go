package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
	"github.com/atendimento/servicedesk/internal/pkg/metrics"
)

// timingPlaintext is hashed once and compared against when the subject does
// not exist, so unknown users cost the same bcrypt work as known ones.
const timingPlaintext = "servicedesk/unknown-subject"

// DefaultRegistrationRoles are the roles self-registration accepts unless
// configured otherwise.
var DefaultRegistrationRoles = []domain.Role{domain.RoleUser, domain.RoleAdmin}

// AuthService implements registration, login and refresh.
type AuthService struct {
	repo   ports.AuthRepository
	hasher ports.PasswordHasher
	tokens ports.TokenCodec
	audit  ports.AuthEventRecorder
	log    zerolog.Logger
	now    func() time.Time

	registrationRoles map[domain.Role]struct{}

	timingOnce   sync.Once
	timingDigest string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithRegistrationRoles replaces the set of roles accepted by Register.
func WithRegistrationRoles(roles ...domain.Role) AuthOption {
	return func(s *AuthService) {
		s.registrationRoles = make(map[domain.Role]struct{}, len(roles))
		for _, r := range roles {
			s.registrationRoles[r] = struct{}{}
		}
	}
}

// WithAuditRecorder sends authentication events to rec.
func WithAuditRecorder(rec ports.AuthEventRecorder) AuthOption {
	return func(s *AuthService) { s.audit = rec }
}

// WithClock overrides the time source used for token issuance.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(repo ports.AuthRepository, hasher ports.PasswordHasher, tokens ports.TokenCodec, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		audit:  nopRecorder{},
		log:    log,
		now:    time.Now,
	}
	WithRegistrationRoles(DefaultRegistrationRoles...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. The role must be in the registration set.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	r, ok := domain.ParseRole(role)
	if _, allowed := s.registrationRoles[r]; !ok || !allowed {
		s.recordRegistrationRejected(username, "invalid_role")
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		s.recordRegistrationRejected(username, "duplicate_subject")
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register lookup: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register hash: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			// Lost a race with a concurrent registration of the same name.
			s.recordRegistrationRejected(username, "duplicate_subject")
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register create: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.audit.Record(domain.AuthEvent{Type: domain.EventRegistered, Subject: created.Username, Reason: string(created.Role), OccurredAt: now})
	s.log.Info().Str("subject", created.Username).Str("role", string(created.Role)).Msg("account registered")

	out := *created
	out.PasswordHash = ""
	return &out, nil
}

// Login verifies credentials and issues an access and a refresh token.
// Unknown subject, locked account and wrong password all return
// domain.ErrInvalidCredentials after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.unknownSubjectDigest())
		return nil, s.loginFailed(username, "unknown_subject")
	}

	matched := s.hasher.Verify(password, user.PasswordHash)
	switch {
	case user.Locked:
		return nil, s.loginFailed(username, "locked")
	case !matched:
		return nil, s.loginFailed(username, "bad_password")
	}

	now := s.now()
	access, err := s.tokens.IssueAccess(user.Username, user.Role, now)
	if err != nil {
		return nil, fmt.Errorf("login issue access: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.Username, now)
	if err != nil {
		return nil, fmt.Errorf("login issue refresh: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success", "").Inc()
	s.audit.Record(domain.AuthEvent{Type: domain.EventLoginSucceeded, Subject: user.Username, OccurredAt: now.UTC()})
	s.log.Debug().Str("subject", user.Username).Msg("login succeeded")

	out := *user
	out.PasswordHash = ""
	return &ports.LoginResult{AccessToken: access, RefreshToken: refresh, User: &out}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The role
// is taken from storage, and a locked or deleted account is refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.LoginResult, error) {
	now := s.now()
	claims, err := s.tokens.ParseRefresh(refreshToken, now)
	if err != nil {
		metrics.TokenRejectionsTotal.WithLabelValues(domain.TokenErrorReason(err)).Inc()
		s.log.Warn().Str("reason", domain.TokenErrorReason(err)).Msg("refresh token rejected")
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, claims.Subject)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, s.refreshFailed(claims.Subject, "unknown_subject")
	case err != nil:
		return nil, fmt.Errorf("refresh lookup: %w", err)
	case user.Locked:
		return nil, s.refreshFailed(claims.Subject, "locked")
	}

	access, err := s.tokens.IssueAccess(user.Username, user.Role, now)
	if err != nil {
		return nil, fmt.Errorf("refresh issue access: %w", err)
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventTokenRefreshed, Subject: user.Username, OccurredAt: now.UTC()})

	out := *user
	out.PasswordHash = ""
	return &ports.LoginResult{AccessToken: access, User: &out}, nil
}

func (s *AuthService) unknownSubjectDigest() string {
	s.timingOnce.Do(func() {
		digest, err := s.hasher.Hash(timingPlaintext)
		if err != nil {
			s.log.Error().Err(err).Msg("could not prepare timing digest")
			return
		}
		s.timingDigest = digest
	})
	return s.timingDigest
}

func (s *AuthService) loginFailed(subject, reason string) error {
	metrics.LoginAttemptsTotal.WithLabelValues("failure", reason).Inc()
	s.audit.Record(domain.AuthEvent{Type: domain.EventLoginFailed, Subject: subject, Reason: reason, OccurredAt: s.now().UTC()})
	s.log.Warn().Str("subject", subject).Str("reason", reason).Msg("login failed")
	return domain.ErrInvalidCredentials
}

func (s *AuthService) refreshFailed(subject, reason string) error {
	s.audit.Record(domain.AuthEvent{Type: domain.EventTokenRejected, Subject: subject, Reason: reason, OccurredAt: s.now().UTC()})
	s.log.Warn().Str("subject", subject).Str("reason", reason).Msg("refresh refused")
	return domain.ErrInvalidCredentials
}

func (s *AuthService) recordRegistrationRejected(subject, reason string) {
	metrics.RegistrationsTotal.WithLabelValues(reason).Inc()
	s.audit.Record(domain.AuthEvent{Type: domain.EventRegistrationRejected, Subject: subject, Reason: reason, OccurredAt: s.now().UTC()})
}

// nopRecorder discards audit events.
type nopRecorder struct{}

func (nopRecorder) Record(domain.AuthEvent) {}
