package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/api/middleware"
	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, username, password, role string) (*domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*ports.LoginResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, username, password, role string) (*domain.User, error) {
	return s.registerFn(ctx, username, password, role)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.LoginResult, error) {
	return s.refreshFn(ctx, refreshToken)
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func issued(value string, ttl time.Duration) domain.IssuedToken {
	return domain.IssuedToken{Value: value, IssuedAt: fixedNow, ExpiresAt: fixedNow.Add(ttl)}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, username, password, role string) (*domain.User, error) {
			if username != "alice" || password != "s3cretpass" || role != "USER" {
				t.Fatalf("unexpected args: %s %s %s", username, password, role)
			}
			return &domain.User{Username: username, Role: domain.RoleUser}, nil
		},
	}
	h := NewAuthHandler(stub, clock)

	c, rec := newJSONContext(http.MethodPost, "/auth/register", `{"username":"alice","password":"s3cretpass","role":"USER"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeMap(t, rec)
	if resp["message"] != "User registered successfully" || resp["username"] != "alice" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["timestamp"] != "2026-03-14 09:26:53" {
		t.Fatalf("unexpected timestamp: %v", resp["timestamp"])
	}
	if _, leaked := resp["password"]; leaked {
		t.Fatalf("password leaked in response")
	}
}

func TestAuthHandler_Register_Rejections(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{"duplicate", domain.ErrUserExists, "Username already exists"},
		{"invalid role", domain.ErrInvalidRole, "Invalid role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				registerFn: func(context.Context, string, string, string) (*domain.User, error) {
					return nil, tc.err
				},
			}
			h := NewAuthHandler(stub, clock)

			c, rec := newJSONContext(http.MethodPost, "/auth/register", `{"username":"bob","password":"s3cretpass","role":"WIZARD"}`)
			if err := h.Register(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			resp := decodeMap(t, rec)
			if resp["error"] != tc.msg || resp["timestamp"] != "2026-03-14 09:26:53" {
				t.Fatalf("unexpected payload: %+v", resp)
			}
		})
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) (*domain.User, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, clock)

	c, rec := newJSONContext(http.MethodPost, "/auth/register", `{"username":"bob"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeMap(t, rec)
	if msg, _ := resp["error"].(string); !strings.Contains(msg, "password is required") {
		t.Fatalf("unexpected error message: %q", msg)
	}
}

func TestAuthHandler_Register_StorageFaultPropagates(t *testing.T) {
	boom := errors.New("mongo down")
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) (*domain.User, error) {
			return nil, boom
		},
	}
	h := NewAuthHandler(stub, clock)

	c, _ := newJSONContext(http.MethodPost, "/auth/register", `{"username":"bob","password":"s3cretpass","role":"USER"}`)
	if err := h.Register(c); !errors.Is(err, boom) {
		t.Fatalf("expected storage fault to reach the error handler, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "alice" || password != "s3cretpass" {
				t.Fatalf("unexpected credentials: %s %s", username, password)
			}
			return &ports.LoginResult{
				AccessToken:  issued("access.jwt.value", 15*time.Minute),
				RefreshToken: issued("refresh.jwt.value", 7*24*time.Hour),
				User:         &domain.User{Username: "alice", Role: domain.RoleUser},
			}, nil
		},
	}
	h := NewAuthHandler(stub, clock)

	c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"username":"alice","password":"s3cretpass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeMap(t, rec)
	if resp["token"] != "access.jwt.value" {
		t.Fatalf("unexpected token: %v", resp["token"])
	}
	if resp["expiresIn"] != float64(900) {
		t.Fatalf("expected expiresIn 900, got %v", resp["expiresIn"])
	}
	if resp["refreshToken"] != "refresh.jwt.value" {
		t.Fatalf("unexpected refresh token: %v", resp["refreshToken"])
	}
}

// The three internal failure causes must be indistinguishable on the wire.
func TestAuthHandler_Login_FailuresAreUniform(t *testing.T) {
	causes := []error{
		domain.ErrInvalidCredentials,                                    // unknown user
		errors.Join(domain.ErrInvalidCredentials, errors.New("locked")), // locked
		domain.ErrInvalidCredentials,                                    // wrong password
	}

	var bodies []string
	for _, cause := range causes {
		stub := &stubAuthService{
			loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
				return nil, cause
			},
		}
		h := NewAuthHandler(stub, clock)

		c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"username":"ghost","password":"whatever"}`)
		if err := h.Login(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}

	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("login failure bodies differ:\n%s\n%s", bodies[0], bodies[i])
		}
	}
	if !strings.Contains(bodies[0], `"error":"Invalid username or password"`) {
		t.Fatalf("unexpected body: %s", bodies[0])
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubAuthService{
			refreshFn: func(_ context.Context, token string) (*ports.LoginResult, error) {
				if token != "refresh.jwt.value" {
					t.Fatalf("unexpected token: %s", token)
				}
				return &ports.LoginResult{AccessToken: issued("new.access", 15*time.Minute)}, nil
			},
		}
		h := NewAuthHandler(stub, clock)

		c, rec := newJSONContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"refresh.jwt.value"}`)
		if err := h.Refresh(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		resp := decodeMap(t, rec)
		if rec.Code != http.StatusOK || resp["token"] != "new.access" {
			t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
		}
		if _, ok := resp["refreshToken"]; ok {
			t.Fatalf("refresh must not mint a new refresh token")
		}
	})

	for _, cause := range []error{domain.ErrTokenExpired, domain.ErrTokenBadSignature, domain.ErrInvalidCredentials} {
		t.Run(cause.Error(), func(t *testing.T) {
			stub := &stubAuthService{
				refreshFn: func(context.Context, string) (*ports.LoginResult, error) {
					return nil, cause
				},
			}
			h := NewAuthHandler(stub, clock)

			c, rec := newJSONContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"x"}`)
			if err := h.Refresh(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), msgInvalidRefresh) {
				t.Fatalf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, clock)

	c, rec := newJSONContext(http.MethodGet, "/me", "")
	middleware.SetPrincipal(c, &domain.Principal{Subject: "carol", Role: domain.RoleSupervisor})
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeMap(t, rec)
	if resp["username"] != "carol" || resp["role"] != "SUPERVISOR" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Me_WithoutPrincipal(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, clock)

	c, _ := newJSONContext(http.MethodGet, "/me", "")
	err := h.Me(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
