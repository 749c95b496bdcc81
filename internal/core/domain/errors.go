package domain

import "errors"

// Authentication and registration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyLocked  = errors.New("user already locked")
	ErrUserNotLocked      = errors.New("user is not locked")
)

// Token verification. These are distinguished for logs only; clients always
// see the same 401.
var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
)

// ErrPolicyMismatch means a route and its handler disagree on who may call it.
var ErrPolicyMismatch = errors.New("access policy mismatch between route and handler")

var ErrServiceRequestNotFound = errors.New("service request not found")

// IsTokenError reports whether err is one of the token verification failures.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenBadSignature) ||
		errors.Is(err, ErrTokenExpired)
}

// TokenErrorReason returns a short label for a token verification failure.
func TokenErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
