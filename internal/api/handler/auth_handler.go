package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/api/middleware"
	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

const (
	msgInvalidCredentials = "Invalid username or password"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgRegistered         = "User registered successfully"
)

type AuthHandler struct {
	authService ports.AuthService
	now         func() time.Time
}

// NewAuthHandler returns an AuthHandler. now may be nil.
func NewAuthHandler(authService ports.AuthService, now func() time.Time) *AuthHandler {
	if now == nil {
		now = time.Now
	}
	return &AuthHandler{authService: authService, now: now}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
}

type registerResponse struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token        string `json:"token"`
	ExpiresIn    int64  `json:"expiresIn"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type principalResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      500   {object}  middleware.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse("invalid payload", h.now()))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(err.Error(), h.now()))
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.Role)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, domain.ErrUserExists):
			msg = "Username already exists"
		case errors.Is(err, domain.ErrInvalidRole):
			msg = "Invalid role"
		case errors.Is(err, domain.ErrInvalidCredentials):
			msg = "username and password are required"
		default:
			return err
		}
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(msg, h.now()))
	}

	return c.JSON(http.StatusOK, registerResponse{
		Message:   msgRegistered,
		Username:  user.Username,
		Timestamp: middleware.FormatTimestamp(h.now()),
	})
}

// Login authenticates a user and returns an access token and a refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      401   {object}  middleware.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse("invalid payload", h.now()))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(err.Error(), h.now()))
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, middleware.NewErrorResponse(msgInvalidCredentials, h.now()))
		}
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:        res.AccessToken.Value,
		ExpiresIn:    int64(res.AccessToken.TTL() / time.Second),
		RefreshToken: res.RefreshToken.Value,
	})
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      401   {object}  middleware.ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse("invalid payload", h.now()))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(err.Error(), h.now()))
	}

	res, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) || domain.IsTokenError(err) {
			return c.JSON(http.StatusUnauthorized, middleware.NewErrorResponse(msgInvalidRefresh, h.now()))
		}
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.AccessToken.Value,
		ExpiresIn: int64(res.AccessToken.TTL() / time.Second),
	})
}

// Me returns the caller's security context.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  middleware.RejectionResponse
// @Router       /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, principalResponse{Username: p.Subject, Role: string(p.Role)})
}
