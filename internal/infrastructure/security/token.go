package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// MinSecretLength is the shortest HMAC key accepted, in bytes.
const MinSecretLength = 32

// TokenConfig holds the codec's process-wide key material and lifetimes.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string           `json:"role,omitempty"`
	Type domain.TokenType `json:"typ"`
}

// TokenCodec signs and verifies HS256 JWTs. It holds no mutable state after
// construction and is safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec validates cfg and copies the key so later changes to the
// caller's slice have no effect.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	return &TokenCodec{
		secret:     append([]byte(nil), cfg.Secret...),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// AccessTTL is the lifetime of access tokens.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// IssueAccess mints an access token carrying the subject and role.
func (c *TokenCodec) IssueAccess(subject string, role domain.Role, now time.Time) (domain.IssuedToken, error) {
	return c.issue(subject, role, domain.TokenAccess, c.accessTTL, now)
}

// IssueRefresh mints a refresh token. It carries no role.
func (c *TokenCodec) IssueRefresh(subject string, now time.Time) (domain.IssuedToken, error) {
	return c.issue(subject, "", domain.TokenRefresh, c.refreshTTL, now)
}

// issue stamps times at second precision, the resolution of JWT NumericDate,
// so ExpiresAt is exactly IssuedAt plus ttl.
func (c *TokenCodec) issue(subject string, role domain.Role, typ domain.TokenType, ttl time.Duration, now time.Time) (domain.IssuedToken, error) {
	if subject == "" {
		return domain.IssuedToken{}, errors.New("token subject is empty")
	}
	issuedAt := now.UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(role),
		Type: typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.IssuedToken{Value: signed, Type: typ, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ParseAccess verifies an access token at instant now.
func (c *TokenCodec) ParseAccess(token string, now time.Time) (*domain.TokenClaims, error) {
	return c.parse(token, domain.TokenAccess, now)
}

// ParseRefresh verifies a refresh token at instant now.
func (c *TokenCodec) ParseRefresh(token string, now time.Time) (*domain.TokenClaims, error) {
	return c.parse(token, domain.TokenRefresh, now)
}

// parse checks the signature over everything before the last dot before
// anything is decoded or split, so any change to the token, a dot included,
// is reported as a bad signature rather than whatever structural or decoding
// error the tampering happens to produce.
func (c *TokenCodec) parse(raw string, want domain.TokenType, now time.Time) (*domain.TokenClaims, error) {
	lastDot := strings.LastIndexByte(raw, '.')
	if lastDot <= 0 {
		return nil, domain.ErrTokenMalformed
	}

	sig, err := base64.RawURLEncoding.Strict().DecodeString(raw[lastDot+1:])
	if err != nil {
		return nil, domain.ErrTokenBadSignature
	}
	if err := jwt.SigningMethodHS256.Verify(raw[:lastDot], sig, c.secret); err != nil {
		return nil, domain.ErrTokenBadSignature
	}

	// Correctly signed but not header.payload.signature: only a key holder
	// could have produced it.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, domain.ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims tokenClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, c.keyFunc, opts...); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, domain.ErrTokenBadSignature
		default:
			return nil, domain.ErrTokenMalformed
		}
	}

	if claims.Subject == "" || claims.Type != want || claims.IssuedAt == nil {
		return nil, domain.ErrTokenMalformed
	}

	out := &domain.TokenClaims{
		Subject:   claims.Subject,
		Type:      claims.Type,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if want == domain.TokenAccess {
		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			return nil, domain.ErrTokenMalformed
		}
		out.Role = role
	}
	return out, nil
}

func (c *TokenCodec) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return c.secret, nil
}
