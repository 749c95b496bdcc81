package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/infrastructure/security"
)

type stubAuthRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	findErr error
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = user.Username
	}
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubAuthRepo) SetLocked(_ context.Context, username string, locked bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Locked = locked
	return cloneUser(u), nil
}

func (r *stubAuthRepo) UpdateRole(_ context.Context, username string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	return cloneUser(u), nil
}

// countingHasher records how many verifications ran.
type countingHasher struct {
	*security.BcryptHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(plaintext, digest string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.BcryptHasher.Verify(plaintext, digest)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *recordingAudit) Record(e domain.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) last() domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type authFixture struct {
	repo   *stubAuthRepo
	hasher *countingHasher
	codec  *security.TokenCodec
	audit  *recordingAudit
	svc    *AuthService
}

func newAuthFixture(t *testing.T, opts ...AuthOption) *authFixture {
	t.Helper()
	bh, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	codec, err := security.NewTokenCodec(security.TokenConfig{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		Issuer:     "servicedesk",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	f := &authFixture{repo: newStubAuthRepo(), hasher: &countingHasher{BcryptHasher: bh}, codec: codec, audit: &recordingAudit{}}
	opts = append([]AuthOption{WithClock(func() time.Time { return testNow }), WithAuditRecorder(f.audit)}, opts...)
	f.svc = NewAuthService(f.repo, f.hasher, codec, zerolog.Nop(), opts...)
	return f
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), "alice", "pass1234", "user")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Username != "alice" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatalf("password hash must not leave the service")
	}

	stored := f.repo.users["alice"]
	if stored.PasswordHash == "pass1234" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if f.audit.last().Type != domain.EventRegistered {
		t.Fatalf("expected registered audit event, got %+v", f.audit.last())
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Register(context.Background(), "", "pass", "USER"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	for _, role := range []string{"SUPERVISOR", "ROOT", ""} {
		if _, err := f.svc.Register(context.Background(), "bob", "pass", role); err != domain.ErrInvalidRole {
			t.Fatalf("role %q: expected ErrInvalidRole, got %v", role, err)
		}
	}
	if _, err := f.svc.Register(context.Background(), "bob", "pass", "ADMIN"); err != nil {
		t.Fatalf("ADMIN is in the default registration set: %v", err)
	}
}

func TestAuthService_Register_CustomRoles(t *testing.T) {
	f := newAuthFixture(t, WithRegistrationRoles(domain.RoleUser))

	if _, err := f.svc.Register(context.Background(), "eve", "pass", "ADMIN"); err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole once ADMIN is removed, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(t)

	_, _ = f.svc.Register(context.Background(), "bob", "pass", "USER")
	if _, err := f.svc.Register(context.Background(), "bob", "pass2", "USER"); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentSameSubject(t *testing.T) {
	f := newAuthFixture(t)

	const n = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Register(context.Background(), "race", "pass", "USER")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUserExists):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("expected exactly one success, got %d successes and %d duplicates", ok, dup)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	if _, err := f.svc.Register(context.Background(), "carol", "s3cret", "ADMIN"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := f.svc.Login(context.Background(), "carol", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.User == nil || res.User.Username != "carol" || res.User.PasswordHash != "" {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if res.AccessToken.TTL() != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %s", res.AccessToken.TTL())
	}

	claims, err := f.codec.ParseAccess(res.AccessToken.Value, testNow)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.Subject != "carol" || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := f.codec.ParseRefresh(res.RefreshToken.Value, testNow); err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
}

func TestAuthService_Login_UniformFailure(t *testing.T) {
	f := newAuthFixture(t)
	_, _ = f.svc.Register(context.Background(), "dave", "goodpass", "USER")
	_, _ = f.svc.Register(context.Background(), "locked", "goodpass", "USER")
	f.repo.users["locked"].Locked = true

	cases := []struct {
		username, password, reason string
	}{
		{"dave", "badpass", "bad_password"},
		{"ghost", "goodpass", "unknown_subject"},
		{"locked", "goodpass", "locked"},
	}
	for _, tc := range cases {
		before := f.hasher.verifies
		res, err := f.svc.Login(context.Background(), tc.username, tc.password)
		if err != domain.ErrInvalidCredentials || res != nil {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.reason, err)
		}
		if f.hasher.verifies != before+1 {
			t.Fatalf("%s: expected exactly one bcrypt verification, got %d", tc.reason, f.hasher.verifies-before)
		}
		if ev := f.audit.last(); ev.Type != domain.EventLoginFailed || ev.Reason != tc.reason {
			t.Fatalf("%s: unexpected audit event %+v", tc.reason, ev)
		}
	}
}

func TestAuthService_Login_StorageFault(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.findErr = errors.New("connection reset")

	_, err := f.svc.Login(context.Background(), "dave", "pass")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("storage fault must not look like bad credentials, got %v", err)
	}
	if !errors.Is(err, f.repo.findErr) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t)
	_, _ = f.svc.Register(context.Background(), "erin", "pass", "USER")
	res, err := f.svc.Login(context.Background(), "erin", "pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Role changes after login are reflected in refreshed access tokens.
	f.repo.users["erin"].Role = domain.RoleSupervisor

	refreshed, err := f.svc.Refresh(context.Background(), res.RefreshToken.Value)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken.Value != "" {
		t.Fatalf("refresh must not mint a new refresh token")
	}
	claims, err := f.codec.ParseAccess(refreshed.AccessToken.Value, testNow)
	if err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}
	if claims.Role != domain.RoleSupervisor {
		t.Fatalf("expected stored role SUPERVISOR, got %s", claims.Role)
	}

	f.repo.users["erin"].Locked = true
	if _, err := f.svc.Refresh(context.Background(), res.RefreshToken.Value); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for locked account, got %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	_, _ = f.svc.Register(context.Background(), "frank", "pass", "USER")
	res, _ := f.svc.Login(context.Background(), "frank", "pass")

	if _, err := f.svc.Refresh(context.Background(), res.AccessToken.Value); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), "garbage"); !domain.IsTokenError(err) {
		t.Fatalf("expected token error, got %v", err)
	}
}
