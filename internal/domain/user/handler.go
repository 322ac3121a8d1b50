package user

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

// RegisterRoutes mounts /auth on api. register and login are listed as
// public paths in auth.AuthSkipper.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", h.Me)
	g.PUT("/profile", h.UpdateProfile)
}

type tokenResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	User    Summary `json:"user"`
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, token, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tokenResponse{Success: true, Token: token, User: u.Summary()})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	u, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Success: true, Token: token, User: u.Summary()})
}

func (h *Handler) Me(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "user": u})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), p.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
		"user":    u,
	})
}
