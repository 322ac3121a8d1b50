package vaccine

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
	read := auth.Require(auth.CapVaccineRead)
	write := auth.Require(auth.CapVaccineWrite)

	g := api.Group("/vaccines")
	g.GET("/low-stock", h.LowStock, read)
	g.GET("", h.List, read)
	g.POST("", h.Create, write)
	g.GET("/:id", h.Get, read)
	g.PUT("/:id", h.Update, write)
	g.DELETE("/:id", h.Delete, auth.Require(auth.CapVaccineDelete))
}

func listResponse(c echo.Context, items []*Vaccine) error {
	if items == nil {
		items = []*Vaccine{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return listResponse(c, items)
}

func (h *Handler) LowStock(c echo.Context) error {
	items, err := h.svc.LowStock(c.Request().Context())
	if err != nil {
		return err
	}
	return listResponse(c, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "vaccine")
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": v})
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	v, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": v})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "vaccine")
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	v, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": v})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "vaccine")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Vaccine deleted successfully"})
}
