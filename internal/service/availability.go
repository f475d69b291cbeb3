package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// MaxQueryDays bounds the date range of a single availability query.
const MaxQueryDays = 92

// QueryAvailability lists the bookable slots of a store between two dates,
// inclusive, grouped by date and ordered by date then start time.  Only rows
// that are still available and belong to an active definition are returned;
// with a zone filter, definitions restricted to other zones are skipped.
// Dates without a bookable slot are omitted.
func (e *Engine) QueryAvailability(ctx context.Context, req QueryRequest) ([]DayAvailability, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.QueryAvailability")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("store.id", int64(req.StoreID)),
		attribute.String("range.start", req.Start),
		attribute.String("range.end", req.End),
	)

	if req.StoreID == 0 {
		return nil, invalid("store id is required")
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, invalid("end %s is before start %s", req.End, req.Start)
	}
	if end.Sub(start).Hours()/24 >= MaxQueryDays {
		return nil, invalid("range exceeds %d days", MaxQueryDays)
	}

	rows, err := e.avail.ListOpenByStore(ctx, req.StoreID, req.Start, req.End)
	if err != nil {
		return nil, txFailed("list availability", err)
	}

	zone := strings.TrimSpace(req.Zone)
	days := make([]DayAvailability, 0)
	for _, r := range rows {
		def := model.SlotDefinition{Zones: r.Zones}
		if !def.ServesZone(zone) || r.BookedCount >= r.Capacity {
			continue
		}
		if n := len(days); n == 0 || days[n-1].Date != r.Date {
			days = append(days, DayAvailability{Date: r.Date})
		}
		last := &days[len(days)-1]
		last.Slots = append(last.Slots, AvailableSlot{
			SlotID:     r.SlotID,
			Name:       r.Name,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Remaining:  r.Capacity - r.BookedCount,
			PriceCents: r.PriceCents,
		})
	}
	return days, nil
}
