package patient

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	g := api.Group("/patients")
	g.GET("", h.List, auth.Require(auth.CapPatientRead))
	g.GET("/:id", h.Get, auth.Require(auth.CapPatientRead))
	g.POST("", h.Create, auth.Require(auth.CapPatientCreate))
	g.PUT("/:id", h.Update, auth.Require(auth.CapPatientWrite))
	g.DELETE("/:id", h.Delete, auth.Require(auth.CapPatientWrite))
}

// ParseID reads the :param path parameter as a uuid.
func ParseID(c echo.Context, param, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid %s id", what)
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p, ListFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Gender: c.QueryParam("gender"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id", "patient")
	if err != nil {
		return err
	}
	pt, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": pt})
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
	pt, err := h.svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": pt})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := ParseID(c, "id", "patient")
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	pt, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": pt})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := ParseID(c, "id", "patient")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Patient deleted successfully"})
}
