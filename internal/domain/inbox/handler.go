package inbox

import (
	"net/http"

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
	g := api.Group("/notifications", auth.Require(auth.CapNotificationRead))
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.PUT("/mark-all-read", h.MarkAllRead)
	g.PUT("/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), p.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), total, pg))
}

func (h *Handler) MarkRead(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.NotFound("Notification not found")
	}
	n, err := h.svc.MarkRead(c.Request().Context(), id, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": n})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.MarkAllRead(c.Request().Context(), p.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "All notifications marked as read"})
}

func (h *Handler) UnreadCount(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": n})
}
