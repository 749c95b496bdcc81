package ports

import (
	"context"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// LoginResult is what a successful login or refresh hands back.
// RefreshToken is zero on refresh.
type LoginResult struct {
	AccessToken  domain.IssuedToken
	RefreshToken domain.IssuedToken
	User         *domain.User
}

type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
}

// UserAdminService covers the admin-only account controls.
type UserAdminService interface {
	Lock(ctx context.Context, actor, username string) (*domain.User, error)
	Unlock(ctx context.Context, actor, username string) (*domain.User, error)
	ChangeRole(ctx context.Context, actor, username, role string) (*domain.User, error)
}
