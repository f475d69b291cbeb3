package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// RegisterMerchant registers MERCHANT-scoped endpoints.  Merchants may
// trigger availability generation for a store out of band of the periodic
// job.
func RegisterMerchant(e *echo.Echo, h *handler.AvailabilityHandler, jwtSecret string) {
	g := e.Group(
		"/v1/stores",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleMerchant),
	)
	g.POST("/:storeID/availability/generate", h.Generate)
}
