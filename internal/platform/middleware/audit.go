package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/platform/auth"
)

// Audit logs every state-changing API call with the acting user. Reads are
// covered by the request logger.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			err := next(c)

			action := auditAction(req.Method)
			if action == "" || !strings.HasPrefix(req.URL.Path, "/api/") {
				return err
			}

			rid, _ := c.Get("request_id").(string)
			evt := logger.Info().
				Str("audit", action).
				Str("route", c.Path()).
				Str("request_id", rid).
				Str("remote_ip", c.RealIP()).
				Bool("failed", err != nil)
			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				evt = evt.Str("user_id", p.UserID.String()).Str("role", string(p.Role))
			}
			if id := c.Param("id"); id != "" {
				evt = evt.Str("resource_id", id)
			}
			evt.Msg("audit")
			return err
		}
	}
}

func auditAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return ""
}
