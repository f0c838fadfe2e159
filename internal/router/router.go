// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/smartplate/smartplate/internal/handler"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/middleware"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/service"
)

// New returns an Echo instance with recovery, CORS and structured request
// logging installed.
func New(corsOrigins []string, log logging.Logger) *echo.Echo {
	if log == nil {
		log = logging.Nop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				args = append(args, "err", v.Error)
			}
			log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))
	return e
}

// RegisterRoutes registers the banner and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers /api/auth. Sign-in routes sit behind the rate
// limiter; select-role and me require a resolved session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/google", a.Google, limit)

	g.POST("/select-role", a.SelectRole, auth)
	g.GET("/me", a.Me, auth)
}

// RegisterDonations registers the role-gated NGO and donor routes.
func RegisterDonations(e *echo.Echo, d *handler.DonationHandler, auth echo.MiddlewareFunc) {
	ngo := e.Group("/api/ngo", auth,
		middleware.Require(service.RequireRole(model.RoleNGO), service.RequireVerified()))
	ngo.POST("/request", d.CreateRequest)

	donor := e.Group("/api/donor", auth, middleware.Require(service.RequireRole(model.RoleDonor)))
	donor.POST("/fulfill", d.Fulfill)
}

// RegisterAdmin registers routes only admins may call.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/api/admin", auth, middleware.Require(service.RequireAdmin()))
	g.POST("/approve-ngo/:user_id", a.ApproveNGO)
}

// RegisterPublic registers unauthenticated read endpoints.
func RegisterPublic(e *echo.Echo, d *handler.DonationHandler, cache echo.MiddlewareFunc) {
	e.GET("/api/analytics/public", d.PublicAnalytics, cache)
}
