package domain

import "time"

// AuthEventType names an authentication or account-control occurrence.
type AuthEventType string

const (
	EventLoginSucceeded       AuthEventType = "login_succeeded"
	EventLoginFailed          AuthEventType = "login_failed"
	EventTokenRefreshed       AuthEventType = "token_refreshed"
	EventTokenRejected        AuthEventType = "token_rejected"
	EventAccessDenied         AuthEventType = "access_denied"
	EventRegistered           AuthEventType = "registered"
	EventRegistrationRejected AuthEventType = "registration_rejected"
	EventAccountLocked        AuthEventType = "account_locked"
	EventAccountUnlocked      AuthEventType = "account_unlocked"
	EventRoleChanged          AuthEventType = "role_changed"
)

// AuthEvent is one entry of the authentication audit trail. Reason carries
// the internal cause that clients never see (for example "locked").
type AuthEvent struct {
	Type       AuthEventType
	Subject    string
	Reason     string
	Actor      string // admin that performed an account change
	RemoteAddr string
	OccurredAt time.Time
}
