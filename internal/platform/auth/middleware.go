package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims carries the authenticated user's identity. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// PrincipalResolver loads the current state of the account a token was
// issued for. It returns an Unauthenticated error when the account is gone
// or deactivated.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID uuid.UUID) (Principal, error)
}

type JWTConfig struct {
	SigningKey []byte
	Skipper    func(echo.Context) bool
	// Resolver, when set, replaces the email and role carried in the token
	// with the account's current values.
	Resolver PrincipalResolver
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.Unauthenticated("Not authorized, no token")
			}
			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return apperr.Unauthenticated("Not authorized, invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return apperr.Unauthenticated("Not authorized, token failed")
			}

			uid, err := uuid.Parse(claims.Subject)
			if err != nil || !claims.Role.Valid() {
				return apperr.Unauthenticated("Not authorized, token failed")
			}

			p := Principal{UserID: uid, Email: claims.Email, Role: claims.Role}
			if cfg.Resolver != nil {
				p, err = cfg.Resolver.ResolvePrincipal(c.Request().Context(), uid)
				if err != nil {
					return err
				}
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			c.Set("user_id", uid.String())
			return next(c)
		}
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// MustPrincipal returns the caller or an Unauthenticated error.
func MustPrincipal(c echo.Context) (Principal, error) {
	p, ok := PrincipalFromContext(c.Request().Context())
	if !ok {
		return Principal{}, apperr.Unauthenticated("Not authorized, no token")
	}
	return p, nil
}
