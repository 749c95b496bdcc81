package ports

import (
	"context"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// AuthRepository is the credential store. Username uniqueness is enforced by
// storage and surfaced as domain.ErrUserExists; missing accounts are
// domain.ErrUserNotFound.
type AuthRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	SetLocked(ctx context.Context, username string, locked bool) (*domain.User, error)
	UpdateRole(ctx context.Context, username string, role domain.Role) (*domain.User, error)
}
