package portal

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/parent", auth.Require(auth.CapPortalRead))
	g.GET("/dashboard", h.Dashboard)
	g.GET("/children", h.Children)
	g.GET("/children/:childId", h.Child)
	g.GET("/children/:childId/immunizations", h.History)
	g.GET("/children/:childId/upcoming", h.Upcoming)
}

func (h *Handler) Dashboard(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": d})
}

func (h *Handler) Children(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Children(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*patient.Patient{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}

func (h *Handler) Child(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := patient.ParseID(c, "childId", "child")
	if err != nil {
		return err
	}
	child, err := h.svc.Child(c.Request().Context(), p.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": child})
}

func (h *Handler) History(c echo.Context) error {
	return h.records(c, h.svc.History)
}

func (h *Handler) Upcoming(c echo.Context) error {
	return h.records(c, h.svc.Upcoming)
}

type recordsFunc func(ctx context.Context, parentID, childID uuid.UUID) ([]*immunization.Immunization, error)

func (h *Handler) records(c echo.Context, fetch recordsFunc) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := patient.ParseID(c, "childId", "child")
	if err != nil {
		return err
	}
	items, err := fetch(c.Request().Context(), p.UserID, id)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*immunization.Immunization{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(items), "data": items})
}
