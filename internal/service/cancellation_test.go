package service_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/service"
)

func TestEngine_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("releases capacity by booking id", func(t *testing.T) {
		t.Parallel()
		h, def, date := bookingFixture(t, 1)
		events := &publisherStub{}
		cache := &cacheStub{}
		engine := h.Engine(service.Options{Events: events, Cache: cache})
		ctx := context.Background()

		booked, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-1", CustomerID: "cust"})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		res, err := engine.Cancel(ctx, service.CancelRequest{BookingID: booked.BookingID})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if !res.OK || res.BookingID != booked.BookingID || res.StoreID != 7 || res.SlotID != def.ID || res.Date != date {
			t.Fatalf("unexpected result %+v", res)
		}
		row := h.Row(t, def.ID, date)
		if row.BookedCount != 0 || !row.IsAvailable {
			t.Fatalf("capacity not released: %+v", row)
		}
		b, err := engine.Booking(ctx, booked.BookingID)
		if err != nil {
			t.Fatalf("Booking lookup failed: %v", err)
		}
		if b.Status != model.BookingCancelled || b.CancelledAt == nil {
			t.Fatalf("booking not marked cancelled: %+v", b)
		}
		if len(events.events) != 2 || events.events[1].Type != queue.EventBookingCancelled || events.events[1].CustomerID != "cust" {
			t.Fatalf("expected a cancelled event, got %+v", events.events)
		}
		if len(cache.stores) != 2 {
			t.Fatalf("expected two invalidations, got %v", cache.stores)
		}
	})

	t.Run("cancels by order id and lets the order book again", func(t *testing.T) {
		t.Parallel()
		h, def, date := bookingFixture(t, 2)
		engine := h.Engine(service.Options{})
		ctx := context.Background()

		first, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		res, err := engine.Cancel(ctx, service.CancelRequest{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if res.BookingID != first.BookingID {
			t.Fatalf("cancelled %q, expected %q", res.BookingID, first.BookingID)
		}
		second, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-1"})
		if err != nil {
			t.Fatalf("rebooking a cancelled order failed: %v", err)
		}
		// the confirmed booking is preferred over the cancelled one
		res, err = engine.Cancel(ctx, service.CancelRequest{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("second Cancel failed: %v", err)
		}
		if res.BookingID != second.BookingID {
			t.Fatalf("cancelled %q, expected the confirmed %q", res.BookingID, second.BookingID)
		}
	})

	t.Run("reports a repeated cancel", func(t *testing.T) {
		t.Parallel()
		h, def, date := bookingFixture(t, 2)
		engine := h.Engine(service.Options{})
		ctx := context.Background()

		other, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-2"})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		booked, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		if _, err := engine.Cancel(ctx, service.CancelRequest{BookingID: booked.BookingID}); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		_, err = engine.Cancel(ctx, service.CancelRequest{BookingID: booked.BookingID})
		if !errors.Is(err, service.ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
		}
		_, err = engine.Cancel(ctx, service.CancelRequest{OrderID: "order-1"})
		if !errors.Is(err, service.ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled by order, got %v", err)
		}
		if row := h.Row(t, def.ID, date); row.BookedCount != 1 {
			t.Fatalf("repeated cancel released capacity twice: %+v (other booking %s)", row, other.BookingID)
		}
	})

	t.Run("never drives the count below zero", func(t *testing.T) {
		t.Parallel()
		h, def, date := bookingFixture(t, 2)
		engine := h.Engine(service.Options{})
		ctx := context.Background()

		booked, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		h.Exec(t, `UPDATE slot_availability SET booked_count = 0 WHERE slot_id = ?`, def.ID)

		if _, err := engine.Cancel(ctx, service.CancelRequest{BookingID: booked.BookingID}); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if row := h.Row(t, def.ID, date); row.BookedCount != 0 || !row.IsAvailable {
			t.Fatalf("unexpected row %+v", row)
		}
	})

	t.Run("reports unknown bookings", func(t *testing.T) {
		t.Parallel()
		h, _, _ := bookingFixture(t, 1)
		engine := h.Engine(service.Options{})
		if _, err := engine.Cancel(context.Background(), service.CancelRequest{BookingID: "missing"}); !errors.Is(err, service.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
		if _, err := engine.Cancel(context.Background(), service.CancelRequest{OrderID: "missing"}); !errors.Is(err, service.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound by order, got %v", err)
		}
		if _, err := engine.Booking(context.Background(), "missing"); !errors.Is(err, service.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound from lookup, got %v", err)
		}
	})

	t.Run("requires exactly one identifier", func(t *testing.T) {
		t.Parallel()
		h, _, _ := bookingFixture(t, 1)
		engine := h.Engine(service.Options{})
		for _, req := range []service.CancelRequest{{}, {BookingID: "b", OrderID: "o"}, {BookingID: " "}} {
			if _, err := engine.Cancel(context.Background(), req); !errors.Is(err, service.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
			}
		}
	})
}

// TestEngine_CapacityLifecycle walks a two-unit slot through filling up,
// a cancellation and a retry of the rejected order.
func TestEngine_CapacityLifecycle(t *testing.T) {
	t.Parallel()
	h, def, date := bookingFixture(t, 2)
	engine := h.Engine(service.Options{})
	ctx := context.Background()

	a, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-a"})
	if err != nil || a.Slot.RemainingCapacity != 1 {
		t.Fatalf("order A: res=%+v err=%v", a, err)
	}
	b, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-b"})
	if err != nil || b.Slot.RemainingCapacity != 0 {
		t.Fatalf("order B: res=%+v err=%v", b, err)
	}
	if _, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-c"}); !errors.Is(err, service.ErrSlotFull) {
		t.Fatalf("order C should be rejected, got %v", err)
	}

	days, err := engine.QueryAvailability(ctx, service.QueryRequest{StoreID: def.StoreID, Start: date, End: date})
	if err != nil {
		t.Fatalf("QueryAvailability failed: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("a full slot must not be offered: %+v", days)
	}

	if _, err := engine.Cancel(ctx, service.CancelRequest{BookingID: a.BookingID}); err != nil {
		t.Fatalf("cancel A failed: %v", err)
	}
	days, err = engine.QueryAvailability(ctx, service.QueryRequest{StoreID: def.StoreID, Start: date, End: date})
	if err != nil {
		t.Fatalf("QueryAvailability failed: %v", err)
	}
	if len(days) != 1 || len(days[0].Slots) != 1 || days[0].Slots[0].Remaining != 1 {
		t.Fatalf("expected one slot with one unit left, got %+v", days)
	}

	c, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-c"})
	if err != nil {
		t.Fatalf("retry of order C failed: %v", err)
	}
	if c.Slot.RemainingCapacity != 0 {
		t.Fatalf("expected the slot to be full again, got %d", c.Slot.RemainingCapacity)
	}
}

// TestEngine_CancelRacesBookingsForLastUnit releases one unit of a full slot
// while several orders compete for it.  Bookers keep retrying until they
// observe the cancellation, so exactly one of them must win the freed unit.
func TestEngine_CancelRacesBookingsForLastUnit(t *testing.T) {
	t.Parallel()
	const capacity, bookers = 2, 10
	h, def, date := bookingFixture(t, capacity)
	engine := h.Engine(service.Options{})
	ctx := context.Background()

	first, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-a"})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := engine.Book(ctx, service.BookRequest{SlotID: def.ID, Date: date, OrderID: "order-b"}); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		cancelled atomic.Bool
		successes int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			for {
				released := cancelled.Load()
				_, err := engine.Book(ctx, service.BookRequest{
					SlotID: def.ID, Date: date, OrderID: fmt.Sprintf("late-%d", i),
				})
				if err == nil || !errors.Is(err, service.ErrSlotFull) || released {
					mu.Lock()
					if err == nil {
						successes++
					} else if !errors.Is(err, service.ErrSlotFull) {
						other = append(other, err)
					}
					mu.Unlock()
					return
				}
				runtime.Gosched()
			}
		}(i)
	}

	var cancelErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, cancelErr = engine.Cancel(ctx, service.CancelRequest{BookingID: first.BookingID})
		cancelled.Store(true)
	}()
	close(start)
	wg.Wait()

	if cancelErr != nil {
		t.Fatalf("Cancel failed: %v", cancelErr)
	}
	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if successes != 1 {
		t.Fatalf("expected exactly one booking to take the released unit, got %d", successes)
	}

	row := h.Row(t, def.ID, date)
	bookings, err := h.Bookings.ListByAvailability(ctx, row.ID)
	if err != nil {
		t.Fatalf("ListByAvailability failed: %v", err)
	}
	confirmed := 0
	for _, b := range bookings {
		if b.Status == model.BookingConfirmed {
			confirmed++
		}
	}
	if int(row.BookedCount) != confirmed {
		t.Fatalf("booked_count %d does not match %d confirmed bookings", row.BookedCount, confirmed)
	}
	if row.BookedCount != capacity || row.IsAvailable {
		t.Fatalf("expected the slot to be full again, got %+v", row)
	}
}
