package linking

import (
	"net/http"

	"github.com/labstack/echo/v4"

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
	api.POST("/patients/generate-parent-code", h.Issue, auth.Require(auth.CapCodeIssue))
	api.GET("/patients/verification-codes", h.ListUnused, auth.Require(auth.CapCodeList))
	api.POST("/parent/link-child", h.Link, auth.Require(auth.CapChildLink))
}

func (h *Handler) Issue(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req IssueRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.svc.Issue(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Verification code generated successfully",
		"data":    res,
	})
}

func (h *Handler) ListUnused(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	codes, err := h.svc.ListUnused(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if codes == nil {
		codes = []*CodeView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(codes), "data": codes})
}

func (h *Handler) Link(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	child, err := h.svc.Link(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": child.Name + " has been successfully linked to your account",
		"data":    child,
	})
}
