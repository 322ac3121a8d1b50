package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	parent := api.Group("/appointments", auth.Require(auth.CapAppointmentRequest))
	parent.POST("", h.Create)
	parent.GET("", h.Mine)
	parent.PUT("/:id/cancel", h.Cancel)

	staff := api.Group("/staff/appointments", auth.Require(auth.CapAppointmentManage))
	staff.GET("", h.List)
	staff.PUT("/:id/status", h.UpdateStatus)
}

func listResponse(c echo.Context, items []*Appointment) error {
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}

func (h *Handler) Create(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Appointment request submitted successfully. The clinic will contact you to confirm.",
		"data":    a,
	})
}

func (h *Handler) Mine(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Mine(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return listResponse(c, items)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := patient.ParseID(c, "id", "appointment")
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Appointment cancelled", "data": a})
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context(), Status(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return listResponse(c, items)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "appointment")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	status := Status(req.Status)
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": statusMessage(status), "data": a})
}
