// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"accounts/internal/delivery/http/middleware"
	"accounts/internal/delivery/http/router/handler"
	"accounts/internal/infra/metrics"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Registry
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Registry
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
		metrics:        params.Metrics,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(r.metrics.Handler()))

	auth := r.authMiddleware.Authenticate

	users := e.Group("/users")
	{
		users.POST("", r.accountHandler.Register)
		users.POST("/login", r.accountHandler.Login)
		users.POST("/token/refresh", r.accountHandler.RefreshToken)
		users.GET("", r.accountHandler.List, r.authMiddleware.ListPolicy)

		// Static /me routes take precedence over /:id in echo's router.
		users.GET("/me", r.accountHandler.GetMe, auth)
		users.PUT("/me", r.accountHandler.UpdateMe, auth)
		users.PATCH("/me", r.accountHandler.UpdateMe, auth)
		users.DELETE("/me", r.accountHandler.DeleteMe, auth)
		users.PUT("/:id", r.accountHandler.UpdateByID, auth)
		users.PATCH("/:id", r.accountHandler.UpdateByID, auth)
	}
}
