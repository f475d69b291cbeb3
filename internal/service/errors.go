package service

import (
	"errors"
	"fmt"
)

// Errors returned by the reservation engine.  Callers distinguish them with
// errors.Is:
//
//   - ErrSlotFull means the race for the last unit was lost; pick another slot.
//   - ErrSlotNotFound and ErrInvalidRequest mean the input was wrong.
//   - ErrDuplicateBooking and ErrAlreadyCancelled mean the operation already
//     happened; idempotent callers may treat them as success.
//   - ErrTransactionFailed wraps lock, driver and commit failures.
var (
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrSlotFull          = errors.New("slot full")
	ErrDuplicateBooking  = errors.New("duplicate booking")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrInvalidRequest    = errors.New("invalid request")
)

// txFailed wraps an infrastructure error so that both ErrTransactionFailed and
// the cause (e.g. context.DeadlineExceeded) match errors.Is.
func txFailed(step string, err error) error {
	return fmt.Errorf("%s: %w: %w", step, ErrTransactionFailed, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ErrorKind maps engine errors to a stable label used in logs and API
// responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrSlotFull):
		return "slot_full"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate_booking"
	case errors.Is(err, ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrTransactionFailed):
		return "transaction_failed"
	}
	return "unexpected"
}
