// Package testfixtures provides a migrated SQLite database, a controllable
// clock and seeding helpers for integration-style tests.
package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// Harness bundles a temporary SQLite database with the repositories over
// it.
type Harness struct {
	DB           *database.DB
	Definitions  *repository.SlotDefinitionRepo
	Availability *repository.AvailabilityRepo
	Bookings     *repository.BookingRepo
	Clock        *Clock
	IDs          *IDGenerator
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir().  It is
// closed automatically when the test ends.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "slots.db")
	db, err := database.Open(database.DialectSQLite, path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		tb.Fatalf("failed to migrate database: %v", err)
	}
	return &Harness{
		DB:           db,
		Definitions:  repository.NewSlotDefinitionRepo(db),
		Availability: repository.NewAvailabilityRepo(db),
		Bookings:     repository.NewBookingRepo(db),
		Clock:        NewClock(time.Time{}),
		IDs:          NewIDGenerator(""),
	}
}

// DiscardLogger drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Engine builds an engine over the harness database.  Unset clock, ID and
// logger options default to the harness clock, the harness ID generator and
// a discarding logger.
func (h *Harness) Engine(opts service.Options) *service.Engine {
	if opts.Now == nil {
		opts.Now = h.Clock.NowFunc()
	}
	if opts.NewID == nil {
		opts.NewID = h.IDs.NextFunc()
	}
	if opts.Logger == nil {
		opts.Logger = DiscardLogger()
	}
	return service.NewEngine(h.DB, opts)
}

// AllWeek lists every weekday.
var AllWeek = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// SeedDefinition inserts def, filling in a store, window, capacity and a
// full week when they are unset, and returns it with its ID.  The
// definition is stored active unless Inactive is used.
func (h *Harness) SeedDefinition(tb testing.TB, def model.SlotDefinition) model.SlotDefinition {
	tb.Helper()
	if def.StoreID == 0 {
		def.StoreID = 1
	}
	if def.Name == "" {
		def.Name = "Morning"
	}
	if def.StartTime == "" {
		def.StartTime = "09:00"
	}
	if def.EndTime == "" {
		def.EndTime = "11:00"
	}
	if def.Capacity == 0 {
		def.Capacity = 2
	}
	if def.DaysOfWeek == nil {
		def.DaysOfWeek = AllWeek
	}
	def.IsActive = true
	if err := h.Definitions.Create(context.Background(), &def); err != nil {
		tb.Fatalf("failed to seed slot definition: %v", err)
	}
	return def
}

// Inactive inserts def like SeedDefinition but marks it inactive.
func (h *Harness) Inactive(tb testing.TB, def model.SlotDefinition) model.SlotDefinition {
	tb.Helper()
	def = h.SeedDefinition(tb, def)
	q := h.DB.Dialect.Rebind(`UPDATE slot_definitions SET is_active = ? WHERE id = ?`)
	if _, err := h.DB.ExecContext(context.Background(), q, false, def.ID); err != nil {
		tb.Fatalf("failed to deactivate definition: %v", err)
	}
	def.IsActive = false
	return def
}

// OpenDate creates the availability row of def on date.
func (h *Harness) OpenDate(tb testing.TB, def model.SlotDefinition, date string) {
	tb.Helper()
	if _, err := h.Availability.InsertIfAbsent(context.Background(), def.ID, date, def.Capacity, "2025-01-01 00:00:00"); err != nil {
		tb.Fatalf("failed to open %s for slot %d: %v", date, def.ID, err)
	}
}

// Row returns the availability row of (slotID, date) or fails the test.
func (h *Harness) Row(tb testing.TB, slotID uint64, date string) *model.SlotAvailability {
	tb.Helper()
	a, err := h.Availability.Get(context.Background(), slotID, date)
	if err != nil {
		tb.Fatalf("failed to load availability %d/%s: %v", slotID, date, err)
	}
	return a
}

// CountRows returns the number of availability rows of slotID.
func (h *Harness) CountRows(tb testing.TB, slotID uint64) int {
	tb.Helper()
	var n int
	q := h.DB.Dialect.Rebind(`SELECT COUNT(*) FROM slot_availability WHERE slot_id = ?`)
	if err := h.DB.QueryRowContext(context.Background(), q, slotID).Scan(&n); err != nil {
		tb.Fatalf("failed to count rows: %v", err)
	}
	return n
}

// Exec runs a raw statement, for tests that need to corrupt state.
func (h *Harness) Exec(tb testing.TB, q string, args ...any) {
	tb.Helper()
	if _, err := h.DB.ExecContext(context.Background(), h.DB.Dialect.Rebind(q), args...); err != nil {
		tb.Fatalf("exec %q: %v", q, err)
	}
}
