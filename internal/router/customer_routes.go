package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// RegisterCustomer registers the booking endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER role.  limiter is applied to the
// mutating routes only.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer),
	)
	g.POST("", h.Book, limiter)
	g.POST("/cancel", h.CancelByOrder, limiter)
	g.GET("/:id", h.GetBooking)
	g.DELETE("/:id", h.CancelBooking, limiter)
}
