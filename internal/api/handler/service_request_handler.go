package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendimento/servicedesk/internal/core/ports"
)

// ServiceRequestHandler handles HTTP requests for service request operations.
// Domain errors are returned to the central error handler.
type ServiceRequestHandler struct {
	service ports.ServiceRequestService
}

func NewServiceRequestHandler(service ports.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{service: service}
}

// Create handles POST /service-requests.
//
// @Summary      Open a service request
// @Tags         service-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createServiceRequestRequest  true  "Service request details"
// @Success      201   {object}  serviceRequestResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      401   {object}  middleware.RejectionResponse
// @Failure      403   {object}  middleware.RejectionResponse
// @Failure      500   {object}  middleware.ErrorResponse
// @Router       /service-requests [post]
func (h *ServiceRequestHandler) Create(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	var req createServiceRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sr, err := h.service.Create(c.Request().Context(), toCreateInput(req, p.Subject))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toServiceRequestResponse(sr))
}

// GetByProtocol handles GET /service-requests/protocol/:protocol.
//
// @Summary      Get a service request by protocol
// @Tags         service-requests
// @Produce      json
// @Security     BearerAuth
// @Param        protocol  path      string  true  "Protocol number"
// @Success      200       {object}  serviceRequestResponse
// @Failure      401       {object}  middleware.RejectionResponse
// @Failure      403       {object}  middleware.RejectionResponse
// @Failure      404       {object}  middleware.ErrorResponse
// @Router       /service-requests/protocol/{protocol} [get]
func (h *ServiceRequestHandler) GetByProtocol(c echo.Context) error {
	sr, err := h.service.GetByProtocol(c.Request().Context(), c.Param("protocol"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toServiceRequestResponse(sr))
}

// UpdateDescription handles PATCH /supervisor/service-requests/:protocol.
//
// @Summary      Rewrite a service request description
// @Tags         supervisor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        protocol  path      string                    true  "Protocol number"
// @Param        body      body      updateDescriptionRequest  true  "New description"
// @Success      200       {object}  serviceRequestResponse
// @Failure      400       {object}  middleware.ErrorResponse
// @Failure      403       {object}  middleware.RejectionResponse
// @Failure      404       {object}  middleware.ErrorResponse
// @Router       /supervisor/service-requests/{protocol} [patch]
func (h *ServiceRequestHandler) UpdateDescription(c echo.Context) error {
	var req updateDescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sr, err := h.service.UpdateDescription(c.Request().Context(), c.Param("protocol"), req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toServiceRequestResponse(sr))
}
