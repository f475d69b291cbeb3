package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// Cancel reverses a confirmed booking identified by booking ID or order ID.
// The booking row is locked first, then its availability row.  The booked
// count drops by one (never below zero) and the row is reopened.  Cancelling
// twice fails with ErrAlreadyCancelled and leaves capacity alone.
func (e *Engine) Cancel(ctx context.Context, req CancelRequest) (res *CancelResult, err error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.OrderID = strings.TrimSpace(req.OrderID)
	logger := serviceLogger(e.logger, "cancel", "booking_id", req.BookingID, "order_id", req.OrderID)

	ctx, span := e.tracer.Start(ctx, "reservation.Cancel")
	span.SetAttributes(attribute.String("booking.id", req.BookingID), attribute.String("order.id", req.OrderID))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, ErrorKind(err))
		}
		span.End()
		logResult(ctx, logger, err)
	}()

	if (req.BookingID == "") == (req.OrderID == "") {
		return nil, invalid("exactly one of booking id or order id is required")
	}

	tx, err := e.avail.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, txFailed("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var b *model.Booking
	if req.BookingID != "" {
		b, err = e.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
	} else {
		b, err = e.bookings.GetByOrderForUpdateTx(ctx, tx, req.OrderID)
	}
	if err == repository.ErrNotFound {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, txFailed("lock booking", err)
	}
	if b.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	a, err := e.avail.GetByIDForUpdateTx(ctx, tx, b.AvailabilityID)
	if err != nil {
		return nil, txFailed("lock availability", err)
	}

	now := e.timestamp()
	if err := e.bookings.CancelTx(ctx, tx, b.ID, now); err != nil {
		if err == repository.ErrConflict {
			return nil, ErrAlreadyCancelled
		}
		return nil, txFailed("cancel booking", err)
	}
	booked := a.BookedCount
	if booked > 0 {
		booked--
	}
	if err := e.avail.UpdateCountsTx(ctx, tx, a.ID, a.BookedCount, booked, true, now); err != nil {
		return nil, txFailed("release capacity", err)
	}
	storeID, startTime, endTime, err := e.avail.SlotWindowTx(ctx, tx, a.SlotID)
	if err != nil {
		return nil, txFailed("load slot definition", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txFailed("commit", err)
	}
	committed = true

	res = &CancelResult{OK: true, BookingID: b.ID, StoreID: storeID, SlotID: a.SlotID, Date: a.Date}
	customer := ""
	if b.CustomerID != nil {
		customer = *b.CustomerID
	}
	e.afterCommit(ctx, logger, storeID, queue.BookingEvent{
		Type:       queue.EventBookingCancelled,
		BookingID:  b.ID,
		OrderID:    b.OrderID,
		CustomerID: customer,
		StoreID:    storeID,
		SlotID:     a.SlotID,
		Date:       a.Date,
		StartTime:  startTime,
		EndTime:    endTime,
		Remaining:  a.Capacity - booked,
		OccurredAt: now,
	})
	return res, nil
}
