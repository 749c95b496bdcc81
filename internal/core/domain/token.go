package domain

import "time"

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// IssuedToken is a signed token together with its validity window.
type IssuedToken struct {
	Value     string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is the lifetime the token was issued with.
func (t IssuedToken) TTL() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

// TokenClaims are the verified facts carried by a token.
// Role is empty for refresh tokens.
type TokenClaims struct {
	Subject   string
	Role      Role
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}
