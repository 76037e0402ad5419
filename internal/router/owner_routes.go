package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-core/internal/handler"
	"github.com/iliyamo/seating-core/internal/middleware"
	"github.com/iliyamo/seating-core/internal/utils"
)

// RegisterOwner registers organizer endpoints: publishing layouts, ticket
// types, repricing and blocking seats.  OWNER role only.
func RegisterOwner(e *echo.Echo, s *handler.SeatingHandler, p *handler.PricingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/seatings/:id",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOwner),
	)
	g.PUT("", s.Publish)
	g.PUT("/ticket-types", s.ReplaceTicketTypes)

	g.POST("/reprice/preview", p.PreviewReprice)
	g.POST("/reprice", p.ApplyReprice)

	g.POST("/seats/block", s.Block)
	g.POST("/seats/unblock", s.Unblock)
	g.GET("/seats/blocked", s.Blocked)
}

// RegisterService registers the checkout service's hold lifecycle calls.
// SERVICE role only.
func RegisterService(e *echo.Echo, h *handler.HoldHandler, jwtSecret string) {
	g := e.Group(
		"/v1/holds",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleService),
	)
	g.POST("/:id/validate", h.ValidateHold)
	g.POST("/:id/extend", h.ExtendHold)
	g.POST("/:id/confirm", h.ConfirmHold)
	g.DELETE("/:id", h.DeleteHold)
}
