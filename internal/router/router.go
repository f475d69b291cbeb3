// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the availability query.  Responses are served
// through the availability cache, which bookings and cancellations
// invalidate per store.
func RegisterPublic(e *echo.Echo, h *handler.AvailabilityHandler, cache *middleware.AvailabilityCache) {
	g := e.Group("/v1", cache.Middleware())
	g.GET("/stores/:storeID/availability", h.Query)
}
