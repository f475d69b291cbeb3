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

// Book reserves one unit of capacity on (slot, date) for an order.
//
// The availability row is locked before any check and stays locked until
// commit, so concurrent attempts against the same row run one after another
// while attempts on other rows proceed in parallel.  Checks run in order:
// row exists, row is available, capacity remains, order has no confirmed
// booking.  A closed row fails with ErrSlotFull when it is at capacity and
// ErrSlotUnavailable otherwise.  When an open row turns out to be full the
// engine persists is_available = false before returning ErrSlotFull.
func (e *Engine) Book(ctx context.Context, req BookRequest) (res *BookingResult, err error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	logger := serviceLogger(e.logger, "book", "slot_id", req.SlotID, "date", req.Date, "order_id", req.OrderID)

	ctx, span := e.tracer.Start(ctx, "reservation.Book")
	span.SetAttributes(
		attribute.Int64("slot.id", int64(req.SlotID)),
		attribute.String("slot.date", req.Date),
		attribute.String("order.id", req.OrderID),
	)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, ErrorKind(err))
		}
		span.End()
		logResult(ctx, logger, err)
	}()

	if req.SlotID == 0 {
		return nil, invalid("slot id is required")
	}
	if req.OrderID == "" {
		return nil, invalid("order id is required")
	}
	if _, err := parseDate("date", req.Date); err != nil {
		return nil, err
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

	a, err := e.avail.GetForUpdateTx(ctx, tx, req.SlotID, req.Date)
	if err == repository.ErrNotFound {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, txFailed("lock availability", err)
	}
	if !a.IsAvailable {
		// a row closed because it filled up reports the lost race
		if a.BookedCount >= a.Capacity {
			return nil, ErrSlotFull
		}
		return nil, ErrSlotUnavailable
	}
	if a.BookedCount >= a.Capacity {
		// the flag was stale; close the row so queries stop offering it
		if err := e.avail.MarkUnavailableTx(ctx, tx, a.ID, e.timestamp()); err != nil {
			logger.WarnContext(ctx, "failed to mark full slot unavailable", "err", err)
		} else if err := tx.Commit(); err != nil {
			logger.WarnContext(ctx, "failed to commit full slot correction", "err", err)
		} else {
			committed = true
		}
		return nil, ErrSlotFull
	}
	dup, err := e.bookings.HasConfirmedForOrderTx(ctx, tx, req.OrderID)
	if err != nil {
		return nil, txFailed("check order", err)
	}
	if dup {
		return nil, ErrDuplicateBooking
	}

	storeID, startTime, endTime, err := e.avail.SlotWindowTx(ctx, tx, a.SlotID)
	if err != nil {
		return nil, txFailed("load slot definition", err)
	}

	now := e.timestamp()
	b := &model.Booking{
		ID:             e.newID(),
		AvailabilityID: a.ID,
		OrderID:        req.OrderID,
		Status:         model.BookingConfirmed,
		CreatedAt:      now,
	}
	if req.CustomerID != "" {
		c := req.CustomerID
		b.CustomerID = &c
	}
	if err := e.bookings.CreateTx(ctx, tx, b); err != nil {
		if err == repository.ErrConflict {
			// another slot committed a booking for this order first
			return nil, ErrDuplicateBooking
		}
		return nil, txFailed("insert booking", err)
	}

	booked := a.BookedCount + 1
	if err := e.avail.UpdateCountsTx(ctx, tx, a.ID, a.BookedCount, booked, booked < a.Capacity, now); err != nil {
		return nil, txFailed("update availability", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txFailed("commit", err)
	}
	committed = true

	res = &BookingResult{
		BookingID: b.ID,
		Slot: SlotSnapshot{
			SlotID:            a.SlotID,
			StoreID:           storeID,
			Date:              a.Date,
			StartTime:         startTime,
			EndTime:           endTime,
			RemainingCapacity: a.Capacity - booked,
		},
	}
	span.SetAttributes(attribute.String("booking.id", b.ID), attribute.Int64("slot.remaining", int64(res.Slot.RemainingCapacity)))

	e.afterCommit(ctx, logger, storeID, queue.BookingEvent{
		Type:       queue.EventBookingConfirmed,
		BookingID:  b.ID,
		OrderID:    b.OrderID,
		CustomerID: req.CustomerID,
		StoreID:    storeID,
		SlotID:     a.SlotID,
		Date:       a.Date,
		StartTime:  startTime,
		EndTime:    endTime,
		Remaining:  res.Slot.RemainingCapacity,
		OccurredAt: now,
	})
	return res, nil
}
