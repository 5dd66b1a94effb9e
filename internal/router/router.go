// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/handler"
	"github.com/harborhq/harbor/internal/middleware"
	"github.com/harborhq/harbor/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Register, login, refresh and
// logout take no access token; refresh and logout authenticate with the
// refresh-token cookie instead. /v1/auth/me requires a valid access token.
// The extra middleware (rate limiting, typically) applies to the whole
// /v1/auth group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	for _, m := range extra {
		g.Use(m)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(a.Verifier))
}

// RegisterWorkspace registers the document and connection endpoints. All of
// them require a valid access token. Reads are open to every role and get
// the response cache (when non-nil); writes additionally require the editor
// or admin role.
func RegisterWorkspace(e *echo.Echo, a *handler.AuthHandler, d *handler.DocumentHandler, cn *handler.ConnectionHandler, cacheGET echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(a.Verifier))

	reads := []echo.MiddlewareFunc{}
	if cacheGET != nil {
		reads = append(reads, cacheGET)
	}
	write := middleware.RequireRole(model.RoleEditor, model.RoleAdmin)

	g.GET("/documents", d.List, reads...)
	g.POST("/documents", d.Create, write)
	g.GET("/documents/:id", d.Get, reads...)
	g.PUT("/documents/:id", d.Update, write)
	g.DELETE("/documents/:id", d.Delete, write)
	g.GET("/documents/:id/versions", d.Versions, reads...)

	g.GET("/connections", cn.List, reads...)
	g.POST("/connections", cn.Create, write)
	g.GET("/connections/:id", cn.Get, reads...)
	g.PUT("/connections/:id", cn.Update, write)
	g.DELETE("/connections/:id", cn.Delete, write)
}

// RegisterAdmin registers account administration behind the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler) {
	g := e.Group("/v1/admin", middleware.JWTAuth(a.Verifier), middleware.RequireRole(model.RoleAdmin))
	g.PUT("/users/:id/status", adm.SetUserStatus)
}
