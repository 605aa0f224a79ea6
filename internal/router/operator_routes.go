package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// RegisterOperator registers catalog management endpoints under
// /v1/operator.  All routes require the OPERATOR role.
func RegisterOperator(e *echo.Echo, h *handler.OperatorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/operator",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OPERATOR"),
	)
	g.POST("/buses", h.CreateBus)
	g.PATCH("/buses/:id", h.UpdateBus)
	g.DELETE("/buses/:id", h.DeactivateBus)
	g.POST("/buses/:id/seats", h.AddSeats)
	g.GET("/buses/:id/bookings", h.ListBusBookings)
}
