// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/handler"
	"github.com/otomatiktech/consult-booking/internal/middleware"
	"github.com/otomatiktech/consult-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check, the public availability query, and the gateway
// webhook (authenticated by its own shared-secret header).
func RegisterRoutes(e *echo.Echo, b *handler.BookingHandler, p *handler.PaymentHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/availability", b.Availability)
	e.POST("/v1/payment/webhook", p.Webhook)
}

// RegisterAuth registers the authentication endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterProtected registers everything behind JWT authentication.
// Admin-only endpoints additionally require the admin role.
func RegisterProtected(
	e *echo.Echo,
	jwtSecret string,
	a *handler.AuthHandler,
	b *handler.BookingHandler,
	p *handler.PaymentHandler,
	w *handler.WalletHandler,
	adm *handler.AdminHandler,
) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	auth.GET("/me", a.Me)

	auth.GET("/bookings", b.List)
	auth.GET("/bookings/:id", b.Get)
	auth.DELETE("/bookings/:id", b.Cancel)
	auth.GET("/bookings/:id/comments", b.ListComments)
	auth.POST("/bookings/:id/comments", b.AddComment)
	auth.PUT("/comments/:id", b.UpdateComment)

	auth.POST("/payment/free", p.BookFree)
	auth.POST("/payment/wallet", p.BookWithWallet)
	auth.POST("/payment/initiate", p.InitiateCheckout)
	auth.POST("/payment/verify", p.Verify)

	auth.GET("/wallet", w.Get)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", adm.ListUsers)
	admin.PUT("/users/:id/role", adm.UpdateRole)
	admin.GET("/settings", adm.GetSettings)
	admin.PUT("/settings", adm.UpdateSettings)
	admin.GET("/stats", adm.GetStats)
	admin.POST("/wallet/topup", w.TopUp)
	admin.POST("/wallet/debit", w.Debit)
}
