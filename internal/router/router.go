package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-core/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication and
// carry no domain data.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  cache wraps
// the routes whose output is fixed once a layout is published; seat status
// and prices are always computed live.
func RegisterPublic(e *echo.Echo, s *handler.SeatingHandler, p *handler.PricingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/seatings/:id", s.Seating, cache)
	e.GET("/v1/seatings/:id/sections/:section/ticket-types", s.SectionTicketTypes, cache)
	e.GET("/v1/seatings/:id/seats", s.SeatMap)

	e.GET("/v1/seatings/:id/seats/:uid/price", p.SeatPrice)
	e.POST("/v1/seatings/:id/prices", p.BulkPrices)
	e.GET("/v1/seatings/:id/ticket-types/:tt/price", p.TicketTypePrice)
}
