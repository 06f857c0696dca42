package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-admin/internal/handler"
	"github.com/iliyamo/storefront-admin/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints used by the admin UI.  They
// are only mounted when the local identity provider issues sessions.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
}

// RegisterAdmin registers the customer lifecycle endpoints.  The guard runs
// first so the limiter can key on the authenticated principal.
func RegisterAdmin(e *echo.Echo, h *handler.LifecycleHandler, guard middleware.Authorizer, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{middleware.RequireAdmin(guard)}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/admin/customer", mw...)

	g.POST("/provision", h.Provision)
	g.POST("/update", h.Update)
	g.POST("/deprovision", h.Deprovision)
	g.POST("/entitlements", h.SetEntitlements)
	g.POST("/entitlement/notes", h.UpdateNotes)
	g.GET("/:id", h.Get)
}
