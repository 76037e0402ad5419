package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-core/internal/handler"
	"github.com/iliyamo/seating-core/internal/middleware"
	"github.com/iliyamo/seating-core/internal/utils"
)

// RegisterCustomer registers buyer endpoints under /v1.  All routes require
// a valid JWT with the CUSTOMER role; the token subject is the seat holder.
// Writes go through limit, since every one of them is a hold batch.
func RegisterCustomer(e *echo.Echo, h *handler.HoldHandler, cart *handler.CartHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/seatings/:id",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleCustomer),
	)
	g.POST("/holds", h.CreateHold, limit)
	g.DELETE("/holds", h.ReleaseHolds)

	g.GET("/cart", cart.GetCart)
	g.PUT("/cart", cart.PutCart, limit)
	g.DELETE("/cart", cart.ClearCart)
	g.POST("/cart/toggle", cart.ToggleSeat, limit)
	g.POST("/cart/quantity", cart.SetQuantity, limit)
}
