package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

// AdminHandler exposes the account controls reserved to ADMIN.
type AdminHandler struct {
	admin ports.UserAdminService
}

func NewAdminHandler(admin ports.UserAdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type userResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Locked    bool      `json:"locked"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Role:      string(u.Role),
		Locked:    u.Locked,
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

// Lock handles PATCH /admin/users/:username/lock.
//
// @Summary      Lock an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  userResponse
// @Failure      400       {object}  middleware.ErrorResponse
// @Failure      403       {object}  middleware.RejectionResponse
// @Failure      404       {object}  middleware.ErrorResponse
// @Router       /admin/users/{username}/lock [patch]
func (h *AdminHandler) Lock(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	u, err := h.admin.Lock(c.Request().Context(), p.Subject, c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// Unlock handles PATCH /admin/users/:username/unlock.
//
// @Summary      Unlock an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  userResponse
// @Failure      400       {object}  middleware.ErrorResponse
// @Failure      403       {object}  middleware.RejectionResponse
// @Failure      404       {object}  middleware.ErrorResponse
// @Router       /admin/users/{username}/unlock [patch]
func (h *AdminHandler) Unlock(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	u, err := h.admin.Unlock(c.Request().Context(), p.Subject, c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// ChangeRole handles PATCH /admin/users/:username/role.
//
// @Summary      Change an account's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string             true  "Username"
// @Param        body      body      changeRoleRequest  true  "New role"
// @Success      200       {object}  userResponse
// @Failure      400       {object}  middleware.ErrorResponse
// @Failure      403       {object}  middleware.RejectionResponse
// @Failure      404       {object}  middleware.ErrorResponse
// @Router       /admin/users/{username}/role [patch]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.admin.ChangeRole(c.Request().Context(), p.Subject, c.Param("username"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}
