// Package service implements the delivery-slot reservation engine: dated
// availability generation, availability queries, bookings and
// cancellations.  Bookings and cancellations run in short transactions that
// hold an exclusive lock on the slot_availability row they mutate; this lock
// is the only synchronization the engine relies on.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// DefaultHorizonDays is the generation window used when none is configured.
const DefaultHorizonDays = 14

// EventPublisher receives booking events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// CacheInvalidator drops cached availability for a store.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, storeID uint64) error
}

// Options configures an Engine.  Zero values select defaults.
type Options struct {
	Location    *time.Location   // calendar used to compute "today"; UTC when nil
	HorizonDays int              // default generation horizon
	Now         func() time.Time // clock; time.Now when nil
	Logger      *slog.Logger
	Events      EventPublisher   // optional
	Cache       CacheInvalidator // optional
	NewID       func() string    // booking ID generator; uuid.NewString when nil
}

// Engine is the reservation engine.  It is safe for concurrent use; all
// shared state lives in the database.
type Engine struct {
	db       *database.DB
	defs     *repository.SlotDefinitionRepo
	avail    *repository.AvailabilityRepo
	bookings *repository.BookingRepo

	loc     *time.Location
	horizon int
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
	events  EventPublisher
	cache   CacheInvalidator
	tracer  trace.Tracer
}

// NewEngine wires an Engine over db.
func NewEngine(db *database.DB, opts Options) *Engine {
	e := &Engine{
		db:       db,
		defs:     repository.NewSlotDefinitionRepo(db),
		avail:    repository.NewAvailabilityRepo(db),
		bookings: repository.NewBookingRepo(db),
		loc:      opts.Location,
		horizon:  opts.HorizonDays,
		now:      opts.Now,
		newID:    opts.NewID,
		logger:   opts.Logger,
		events:   opts.Events,
		cache:    opts.Cache,
		tracer:   otel.Tracer("github.com/iliyamo/slot-reservation/internal/service"),
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.horizon <= 0 {
		e.horizon = DefaultHorizonDays
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Booking returns a booking by ID.
func (e *Engine) Booking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := e.bookings.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, txFailed("load booking", err)
	}
	return b, nil
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(model.TimestampLayout)
}

// today returns midnight of the current date in the engine's location.
func (e *Engine) today() time.Time {
	y, m, d := e.now().In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// afterCommit fans a committed change out to the cache and the event bus.
// Failures are logged; the committed operation stays successful.
func (e *Engine) afterCommit(ctx context.Context, logger *slog.Logger, storeID uint64, ev queue.BookingEvent) {
	ctx = context.WithoutCancel(ctx)
	e.invalidate(ctx, logger, storeID)
	if e.events != nil {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := e.events.Publish(pctx, ev); err != nil {
			logger.WarnContext(ctx, "booking event publish failed", "type", ev.Type, "booking_id", ev.BookingID, "err", err)
		}
	}
}

// invalidate drops cached availability of storeID.  Failures are logged.
func (e *Engine) invalidate(ctx context.Context, logger *slog.Logger, storeID uint64) {
	if e.cache == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := e.cache.Invalidate(ctx, storeID); err != nil {
		logger.WarnContext(ctx, "availability cache invalidation failed", "store_id", storeID, "err", err)
	}
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("%s must be YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}
