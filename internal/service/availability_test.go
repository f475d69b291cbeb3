package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/service"
	"github.com/iliyamo/slot-reservation/internal/testfixtures"
)

func TestEngine_QueryAvailability(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	evening := h.SeedDefinition(t, model.SlotDefinition{StoreID: 1, Name: "Evening", StartTime: "18:00", EndTime: "20:00", Capacity: 3, PriceCents: 499})
	morning := h.SeedDefinition(t, model.SlotDefinition{StoreID: 1, Name: "Morning", StartTime: "08:00", EndTime: "10:00", Capacity: 1, Zones: []string{"north"}})
	southOnly := h.SeedDefinition(t, model.SlotDefinition{StoreID: 1, Name: "Noon", StartTime: "12:00", EndTime: "13:00", Zones: []string{"south", "east"}})
	inactive := h.Inactive(t, model.SlotDefinition{StoreID: 1, Name: "Retired", StartTime: "07:00", EndTime: "08:00"})
	otherStore := h.SeedDefinition(t, model.SlotDefinition{StoreID: 2})

	d1, d2, d3 := "2025-03-04", "2025-03-05", "2025-03-06"
	for _, def := range []model.SlotDefinition{evening, morning, southOnly, inactive, otherStore} {
		h.OpenDate(t, def, d1)
	}
	// d2 has nothing for store 1; d3 only evening
	h.OpenDate(t, otherStore, d2)
	h.OpenDate(t, evening, d3)

	engine := h.Engine(service.Options{})
	ctx := context.Background()
	if _, err := engine.Book(ctx, service.BookRequest{SlotID: evening.ID, Date: d3, OrderID: "o-1"}); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	t.Run("orders by date and start time and omits empty dates", func(t *testing.T) {
		t.Parallel()
		days, err := engine.QueryAvailability(ctx, service.QueryRequest{StoreID: 1, Start: d1, End: d3})
		if err != nil {
			t.Fatalf("QueryAvailability failed: %v", err)
		}
		want := []service.DayAvailability{
			{Date: d1, Slots: []service.AvailableSlot{
				{SlotID: morning.ID, Name: "Morning", StartTime: "08:00", EndTime: "10:00", Remaining: 1},
				{SlotID: southOnly.ID, Name: "Noon", StartTime: "12:00", EndTime: "13:00", Remaining: 2},
				{SlotID: evening.ID, Name: "Evening", StartTime: "18:00", EndTime: "20:00", Remaining: 3, PriceCents: 499},
			}},
			{Date: d3, Slots: []service.AvailableSlot{
				{SlotID: evening.ID, Name: "Evening", StartTime: "18:00", EndTime: "20:00", Remaining: 2, PriceCents: 499},
			}},
		}
		if !reflect.DeepEqual(days, want) {
			t.Fatalf("unexpected availability\n got: %+v\nwant: %+v", days, want)
		}
	})

	t.Run("filters by zone", func(t *testing.T) {
		t.Parallel()
		days, err := engine.QueryAvailability(ctx, service.QueryRequest{StoreID: 1, Start: d1, End: d1, Zone: "south"})
		if err != nil {
			t.Fatalf("QueryAvailability failed: %v", err)
		}
		if len(days) != 1 {
			t.Fatalf("expected one date, got %+v", days)
		}
		var ids []uint64
		for _, s := range days[0].Slots {
			ids = append(ids, s.SlotID)
		}
		if !reflect.DeepEqual(ids, []uint64{southOnly.ID, evening.ID}) {
			t.Fatalf("zone filter returned %v", ids)
		}
	})

	t.Run("returns an empty list when nothing is bookable", func(t *testing.T) {
		t.Parallel()
		days, err := engine.QueryAvailability(ctx, service.QueryRequest{StoreID: 1, Start: d2, End: d2})
		if err != nil {
			t.Fatalf("QueryAvailability failed: %v", err)
		}
		if days == nil || len(days) != 0 {
			t.Fatalf("expected an empty non-nil list, got %#v", days)
		}
	})

	t.Run("rejects bad ranges", func(t *testing.T) {
		t.Parallel()
		cases := []service.QueryRequest{
			{StoreID: 1, Start: d3, End: d1},
			{StoreID: 1, Start: "tomorrow", End: d1},
			{StoreID: 1, Start: d1, End: "2025-13-01"},
			{StoreID: 1, Start: "2025-01-01", End: "2025-12-31"},
			{StoreID: 0, Start: d1, End: d1},
		}
		for _, req := range cases {
			if _, err := engine.QueryAvailability(ctx, req); !errors.Is(err, service.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
			}
		}
	})
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	cases := map[error]string{
		nil:                          "",
		service.ErrSlotFull:          "slot_full",
		service.ErrDuplicateBooking:  "duplicate_booking",
		service.ErrTransactionFailed: "transaction_failed",
		errors.New("boom"):           "unexpected",
	}
	for err, want := range cases {
		if got := service.ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
	wrapped := errors.Join(errors.New("context"), service.ErrSlotNotFound)
	if got := service.ErrorKind(wrapped); got != "slot_not_found" {
		t.Fatalf("wrapped sentinel mapped to %q", got)
	}
}
