package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

func newAdminFixture() (*stubAuthRepo, *stubIdentityCache, *recordingAudit, *UserAdminService) {
	repo := newStubAuthRepo()
	repo.users["alice"] = &domain.User{Username: "alice", Role: domain.RoleUser, PasswordHash: "h"}
	cache := newStubIdentityCache()
	audit := &recordingAudit{}
	resolver := NewIdentityResolver(repo, cache, zerolog.Nop())
	return repo, cache, audit, NewUserAdminService(repo, resolver, audit, zerolog.Nop())
}

func TestUserAdminService_LockInvalidatesCache(t *testing.T) {
	repo, cache, audit, svc := newAdminFixture()
	cache.entries["alice"] = &domain.Principal{Subject: "alice", Role: domain.RoleUser}

	user, err := svc.Lock(context.Background(), "root", "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !user.Locked || !repo.users["alice"].Locked {
		t.Fatalf("expected alice to be locked")
	}
	if user.PasswordHash != "" {
		t.Fatalf("password hash leaked")
	}
	if _, ok := cache.entries["alice"]; ok {
		t.Fatalf("expected cache entry to be invalidated")
	}
	if ev := audit.last(); ev.Type != domain.EventAccountLocked || ev.Actor != "root" {
		t.Fatalf("unexpected audit event: %+v", ev)
	}

	if _, err := svc.Lock(context.Background(), "root", "alice"); !errors.Is(err, domain.ErrUserAlreadyLocked) {
		t.Fatalf("expected ErrUserAlreadyLocked, got %v", err)
	}
}

func TestUserAdminService_Unlock(t *testing.T) {
	repo, _, _, svc := newAdminFixture()

	if _, err := svc.Unlock(context.Background(), "root", "alice"); !errors.Is(err, domain.ErrUserNotLocked) {
		t.Fatalf("expected ErrUserNotLocked, got %v", err)
	}
	repo.users["alice"].Locked = true
	user, err := svc.Unlock(context.Background(), "root", "alice")
	if err != nil || user.Locked {
		t.Fatalf("unlock: %+v %v", user, err)
	}
}

func TestUserAdminService_ChangeRole(t *testing.T) {
	repo, cache, _, svc := newAdminFixture()
	cache.entries["alice"] = &domain.Principal{Subject: "alice", Role: domain.RoleUser}

	if _, err := svc.ChangeRole(context.Background(), "root", "alice", "GOD"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	user, err := svc.ChangeRole(context.Background(), "root", "alice", "supervisor")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if user.Role != domain.RoleSupervisor || repo.users["alice"].Role != domain.RoleSupervisor {
		t.Fatalf("role not updated: %+v", user)
	}
	if len(cache.deletes) != 1 || cache.deletes[0] != "alice" {
		t.Fatalf("expected one invalidation for alice, got %v", cache.deletes)
	}
}

func TestUserAdminService_UnknownUser(t *testing.T) {
	_, _, _, svc := newAdminFixture()

	if _, err := svc.Lock(context.Background(), "root", "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.ChangeRole(context.Background(), "root", "ghost", "USER"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
