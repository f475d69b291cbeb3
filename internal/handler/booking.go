package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// BookingHandler serves the customer booking endpoints.  All methods assume
// JWTAuth and RequireRole(CUSTOMER) already ran.
type BookingHandler struct {
	Engine Reservations
	Logger *slog.Logger
}

// NewBookingHandler panics when engine is nil.
func NewBookingHandler(engine Reservations, logger *slog.Logger) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Logger: orDefault(logger)}
}

type bookRequest struct {
	SlotID  uint64 `json:"slot_id"`
	Date    string `json:"date"`
	OrderID string `json:"order_id"`
}

// Book handles POST /v1/bookings.  The customer is the token subject.  It
// returns 201 with the booking id and a snapshot of the slot.
func (h *BookingHandler) Book(c echo.Context) error {
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Engine.Book(c.Request().Context(), service.BookRequest{
		SlotID:     body.SlotID,
		Date:       strings.TrimSpace(body.Date),
		OrderID:    strings.TrimSpace(body.OrderID),
		CustomerID: middleware.UserID(c),
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type bookingResponse struct {
	ID             string  `json:"id"`
	AvailabilityID uint64  `json:"availability_id"`
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	CancelledAt    *string `json:"cancelled_at,omitempty"`
}

// GetBooking handles GET /v1/bookings/:id.  Bookings of other customers are
// reported as not found.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	b, err := h.ownBooking(c, c.Param("id"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, bookingResponse{
		ID:             b.ID,
		AvailabilityID: b.AvailabilityID,
		OrderID:        b.OrderID,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
		CancelledAt:    b.CancelledAt,
	})
}

// CancelBooking handles DELETE /v1/bookings/:id.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.ownBooking(c, id); err != nil {
		return respondError(c, h.Logger, err)
	}
	res, err := h.Engine.Cancel(c.Request().Context(), service.CancelRequest{BookingID: id})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CancelByOrder handles POST /v1/bookings/cancel with {"order_id": "..."}.
func (h *BookingHandler) CancelByOrder(c echo.Context) error {
	var body struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	orderID := strings.TrimSpace(body.OrderID)
	if orderID == "" {
		return badRequest(c, "order_id is required")
	}
	res, err := h.Engine.Cancel(c.Request().Context(), service.CancelRequest{OrderID: orderID})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ownBooking loads a booking held by the calling customer.  Bookings of other
// customers, and bookings without a customer, are reported as not found.
func (h *BookingHandler) ownBooking(c echo.Context, id string) (*model.Booking, error) {
	b, err := h.Engine.Booking(c.Request().Context(), strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if b.CustomerID == nil || *b.CustomerID != middleware.UserID(c) {
		return nil, service.ErrBookingNotFound
	}
	return b, nil
}
