package immunization

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := auth.Require(auth.CapImmunizationRead)
	write := auth.Require(auth.CapImmunizationWrite)

	g := api.Group("/immunizations")
	g.GET("/overdue", h.Overdue, read)
	g.GET("", h.List, read)
	g.POST("", h.Create, write)
	g.GET("/:id", h.Get, read)
	g.PUT("/:id", h.Update, write)
	g.DELETE("/:id", h.Delete, auth.Require(auth.CapImmunizationDelete))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Status: Status(c.QueryParam("status")), Limit: pg.Limit, Offset: pg.Offset}
	if raw := c.QueryParam("patientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("Invalid patient id")
		}
		f.PatientID = &id
	}
	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Immunization{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "immunization")
	if err != nil {
		return err
	}
	im, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": im})
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
	im, err := h.svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": im})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "immunization")
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	im, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": im})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := patient.ParseID(c, "id", "immunization")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Immunization record deleted"})
}

func (h *Handler) Overdue(c echo.Context) error {
	items, err := h.svc.Overdue(c.Request().Context())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Immunization{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}
