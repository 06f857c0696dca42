package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-admin/internal/auth"
	"github.com/iliyamo/storefront-admin/internal/logger"
)

// SessionCookie is the cookie carrying a session token for browser callers.
const SessionCookie = "session"

const principalKey = "principal"

// Authorizer is satisfied by *auth.Guard.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) (auth.Principal, error)
}

// RequireAdmin rejects the request before the handler runs unless the
// bearer token (or the session cookie) authorizes an administrator.
// Missing or invalid credentials get 401, a valid non-admin session 403.
// On success the principal is stored in the context.
func RequireAdmin(g Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := g.Authorize(c.Request().Context(), Credential(c))
			switch {
			case errors.Is(err, auth.ErrNotAdministrator):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "AuthDenied"})
			case errors.Is(err, auth.ErrAuthDenied):
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "AuthDenied"})
			case err != nil:
				logger.FromContext(c.Request().Context()).Error("authorization backend failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization unavailable"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// Credential returns the bearer token, falling back to the session cookie.
func Credential(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// PrincipalFrom returns the principal stored by RequireAdmin.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}
