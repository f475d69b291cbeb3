package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// Reservations is the part of the engine the HTTP layer drives.
type Reservations interface {
	Book(ctx context.Context, req service.BookRequest) (*service.BookingResult, error)
	Cancel(ctx context.Context, req service.CancelRequest) (*service.CancelResult, error)
	Booking(ctx context.Context, id string) (*model.Booking, error)
	QueryAvailability(ctx context.Context, req service.QueryRequest) ([]service.DayAvailability, error)
	GenerateAvailability(ctx context.Context, storeID uint64, horizonDays int) (int, error)
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSlotNotFound), errors.Is(err, service.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSlotUnavailable), errors.Is(err, service.ErrSlotFull),
		errors.Is(err, service.ErrDuplicateBooking), errors.Is(err, service.ErrAlreadyCancelled):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTransactionFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes the {"error","code"} body for an engine error.
// Server-side failures are logged and their details withheld.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	status := statusFor(err)
	kind := service.ErrorKind(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "kind", kind, "err", err)
		if status == http.StatusServiceUnavailable {
			msg = "temporarily unavailable, retry"
		} else {
			msg = "internal error"
		}
	}
	return c.JSON(status, echo.Map{"error": msg, "code": kind})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
