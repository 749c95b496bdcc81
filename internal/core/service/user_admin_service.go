package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

// UserAdminService applies admin account controls and keeps the identity
// cache coherent with them.
type UserAdminService struct {
	repo       ports.AuthRepository
	identities ports.IdentityResolver
	audit      ports.AuthEventRecorder
	log        zerolog.Logger
	now        func() time.Time
}

func NewUserAdminService(repo ports.AuthRepository, identities ports.IdentityResolver, audit ports.AuthEventRecorder, log zerolog.Logger) *UserAdminService {
	if audit == nil {
		audit = nopRecorder{}
	}
	return &UserAdminService{repo: repo, identities: identities, audit: audit, log: log, now: time.Now}
}

// Lock marks an account locked. Existing tokens for it stop working on their
// next request.
func (s *UserAdminService) Lock(ctx context.Context, actor, username string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Locked {
		return nil, domain.ErrUserAlreadyLocked
	}
	return s.apply(ctx, actor, username, domain.EventAccountLocked, "", func() (*domain.User, error) {
		return s.repo.SetLocked(ctx, username, true)
	})
}

// Unlock clears the lock flag.
func (s *UserAdminService) Unlock(ctx context.Context, actor, username string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.Locked {
		return nil, domain.ErrUserNotLocked
	}
	return s.apply(ctx, actor, username, domain.EventAccountUnlocked, "", func() (*domain.User, error) {
		return s.repo.SetLocked(ctx, username, false)
	})
}

// ChangeRole sets a new role for the account.
func (s *UserAdminService) ChangeRole(ctx context.Context, actor, username, role string) (*domain.User, error) {
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	return s.apply(ctx, actor, username, domain.EventRoleChanged, string(r), func() (*domain.User, error) {
		return s.repo.UpdateRole(ctx, username, r)
	})
}

func (s *UserAdminService) apply(ctx context.Context, actor, username string, typ domain.AuthEventType, reason string, mutate func() (*domain.User, error)) (*domain.User, error) {
	user, err := mutate()
	if err != nil {
		return nil, err
	}
	s.identities.Invalidate(ctx, username)

	s.audit.Record(domain.AuthEvent{Type: typ, Subject: username, Actor: actor, Reason: reason, OccurredAt: s.now().UTC()})
	s.log.Info().Str("subject", username).Str("actor", actor).Str("change", string(typ)).Msg("account updated")

	out := *user
	out.PasswordHash = ""
	return &out, nil
}
