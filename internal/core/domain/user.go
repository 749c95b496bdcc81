package domain

import (
	"strings"
	"time"
)

// Role is the single authority level granted to an account.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
)

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleAdmin, RoleSupervisor:
		return r, true
	}
	return "", false
}

// User models an account held by the credential store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the identity view of u, without credential material.
func (u *User) Principal() *Principal {
	return &Principal{Subject: u.Username, Role: u.Role, Locked: u.Locked}
}

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	Subject string `json:"username"`
	Role    Role   `json:"role"`
	Locked  bool   `json:"locked"`
}
