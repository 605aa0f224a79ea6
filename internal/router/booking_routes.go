package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// RegisterBookings registers the booking endpoints.  All routes require a
// valid JWT; both roles may book and manage their own bookings.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "OPERATOR"),
	)
	g.POST("/bookings", h.Create)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.GET("/bookings/:id", h.Get)
	g.GET("/bookings/:id/ticket", h.Ticket)

	// User-scoped views; the handler rejects a path user that is not the
	// token subject.
	g.GET("/users/:id/bookings", h.List)
	g.GET("/users/:id/booking-stats", h.Stats)
}
