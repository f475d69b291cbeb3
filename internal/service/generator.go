package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// MaxHorizonDays bounds a single generation run.
const MaxHorizonDays = 366

// GenerateAvailability materializes availability rows for every active slot
// definition of a store on each date in [today, today+horizonDays] whose
// weekday the definition runs on.  Existing rows are never modified, so the
// call is safe to repeat.  It returns the number of rows created.
//
// Each row is inserted on its own; if ctx is cancelled midway the rows
// written so far remain valid and the count so far is returned with the
// context error.  Cached availability of the store is invalidated whenever
// rows were created.  A non-positive horizon selects the configured default.
func (e *Engine) GenerateAvailability(ctx context.Context, storeID uint64, horizonDays int) (created int, err error) {
	if horizonDays <= 0 {
		horizonDays = e.horizon
	}
	logger := serviceLogger(e.logger, "generate", "store_id", storeID, "horizon_days", horizonDays)
	ctx, span := e.tracer.Start(ctx, "reservation.GenerateAvailability")
	defer func() {
		if created > 0 {
			e.invalidate(ctx, logger, storeID)
		}
		span.SetAttributes(attribute.Int("rows.created", created))
		span.End()
		logResult(ctx, logger, err, "created", created)
	}()

	if storeID == 0 {
		return 0, invalid("store id is required")
	}
	if horizonDays > MaxHorizonDays {
		return 0, invalid("horizon_days must be at most %d", MaxHorizonDays)
	}

	defs, err := e.defs.ListActiveByStore(ctx, storeID)
	if err != nil {
		return 0, txFailed("list slot definitions", err)
	}
	today := e.today()
	now := e.timestamp()
	for _, def := range defs {
		for i := 0; i <= horizonDays; i++ {
			day := today.AddDate(0, 0, i)
			if !def.RunsOn(day.Weekday()) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return created, err
			}
			ok, err := e.avail.InsertIfAbsent(ctx, def.ID, day.Format(model.DateLayout), def.Capacity, now)
			if err != nil {
				return created, txFailed(fmt.Sprintf("insert slot %d on %s", def.ID, day.Format(model.DateLayout)), err)
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// GenerateAllStores runs GenerateAvailability for every store with at least
// one active definition.  A failing store does not stop the others; the
// errors are joined and returned with the total number of created rows.
func (e *Engine) GenerateAllStores(ctx context.Context, horizonDays int) (int, error) {
	stores, err := e.defs.ListStoresWithActive(ctx)
	if err != nil {
		return 0, txFailed("list stores", err)
	}
	total := 0
	var errs []error
	for _, id := range stores {
		n, err := e.GenerateAvailability(ctx, id, horizonDays)
		total += n
		if err != nil {
			if ctx.Err() != nil {
				return total, err
			}
			errs = append(errs, fmt.Errorf("store %d: %w", id, err))
		}
	}
	return total, errors.Join(errs...)
}
