package ports

import (
	"time"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// PasswordHasher produces and checks self-describing password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer mints signed tokens.
type TokenIssuer interface {
	IssueAccess(subject string, role domain.Role, now time.Time) (domain.IssuedToken, error)
	IssueRefresh(subject string, now time.Time) (domain.IssuedToken, error)
}

// TokenVerifier checks signed tokens. Failures are domain.ErrTokenMalformed,
// domain.ErrTokenBadSignature or domain.ErrTokenExpired.
type TokenVerifier interface {
	ParseAccess(token string, now time.Time) (*domain.TokenClaims, error)
	ParseRefresh(token string, now time.Time) (*domain.TokenClaims, error)
}

// TokenCodec is the full signing and verification surface.
type TokenCodec interface {
	TokenIssuer
	TokenVerifier
}
