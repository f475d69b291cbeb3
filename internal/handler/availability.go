package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/service"
)

// AvailabilityHandler serves availability queries and merchant-triggered
// generation.
type AvailabilityHandler struct {
	Engine Reservations
	Logger *slog.Logger
}

func NewAvailabilityHandler(engine Reservations, logger *slog.Logger) *AvailabilityHandler {
	if engine == nil {
		panic("nil engine passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Engine: engine, Logger: orDefault(logger)}
}

// Query handles GET /v1/stores/:storeID/availability?start=&end=&zone=.
// When end is omitted it defaults to start.
func (h *AvailabilityHandler) Query(c echo.Context) error {
	storeID, ok := parseID(c, "storeID")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))
	if start == "" {
		return badRequest(c, "start is required")
	}
	if end == "" {
		end = start
	}
	days, err := h.Engine.QueryAvailability(c.Request().Context(), service.QueryRequest{
		StoreID: storeID,
		Start:   start,
		End:     end,
		Zone:    strings.TrimSpace(c.QueryParam("zone")),
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"store_id": storeID, "days": days})
}

// Generate handles POST /v1/stores/:storeID/availability/generate.  An
// empty body or a non-positive horizon_days selects the configured horizon.
func (h *AvailabilityHandler) Generate(c echo.Context) error {
	storeID, ok := parseID(c, "storeID")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	var body struct {
		HorizonDays int `json:"horizon_days"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	created, err := h.Engine.GenerateAvailability(c.Request().Context(), storeID, body.HorizonDays)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"store_id": storeID, "created": created})
}
