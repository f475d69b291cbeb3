package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/model"
)

// AvailabilityRepo provides access to slot_availability, the dated capacity
// rows generated from slot definitions.  Methods suffixed with Tx run inside a
// caller owned transaction; the caller must commit or roll back.
type AvailabilityRepo struct {
	db *database.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *database.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

// DB exposes the underlying handle so callers can begin transactions that
// span several repositories.
func (r *AvailabilityRepo) DB() *database.DB { return r.db }

const availabilityColumns = `id, slot_id, slot_date, capacity, booked_count, is_available, created_at, updated_at`

// InsertIfAbsent creates the (slot, date) row with no bookings.  When the row
// already exists it is left untouched and created is false.
func (r *AvailabilityRepo) InsertIfAbsent(ctx context.Context, slotID uint64, date string, capacity uint32, now string) (bool, error) {
	q := `INSERT INTO slot_availability (slot_id, slot_date, capacity, booked_count, is_available, created_at, updated_at)
	      VALUES (?, ?, ?, 0, ?, ?, ?)` + r.db.Dialect.OnConflictDoNothing("slot_id", "slot_date")
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), slotID, date, capacity, true, now, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the row for (slot, date) without locking it.
func (r *AvailabilityRepo) Get(ctx context.Context, slotID uint64, date string) (*model.SlotAvailability, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + availabilityColumns + ` FROM slot_availability WHERE slot_id = ? AND slot_date = ?`)
	a, err := scanAvailability(r.db.QueryRowContext(ctx, q, slotID, date))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// GetForUpdateTx loads the (slot, date) row and holds an exclusive lock on it
// until tx ends.  ErrNotFound is returned when no row was generated.
func (r *AvailabilityRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64, date string) (*model.SlotAvailability, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + availabilityColumns + ` FROM slot_availability WHERE slot_id = ? AND slot_date = ?` + r.db.Dialect.ForUpdate())
	a, err := scanAvailability(tx.QueryRowContext(ctx, q, slotID, date))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByIDForUpdateTx is GetForUpdateTx keyed by the row ID.
func (r *AvailabilityRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.SlotAvailability, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + availabilityColumns + ` FROM slot_availability WHERE id = ?` + r.db.Dialect.ForUpdate())
	a, err := scanAvailability(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// UpdateCountsTx writes a new booked count and availability flag.  The write
// only applies while booked_count still equals expectedBooked; otherwise
// ErrConflict is returned and nothing changes.
func (r *AvailabilityRepo) UpdateCountsTx(ctx context.Context, tx *sql.Tx, id uint64, expectedBooked, booked uint32, available bool, now string) error {
	q := r.db.Dialect.Rebind(`UPDATE slot_availability
	      SET booked_count = ?, is_available = ?, updated_at = ?
	      WHERE id = ? AND booked_count = ? AND ? <= capacity`)
	res, err := tx.ExecContext(ctx, q, booked, available, now, id, expectedBooked, booked)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// MarkUnavailableTx clears is_available without touching the booked count.
func (r *AvailabilityRepo) MarkUnavailableTx(ctx context.Context, tx *sql.Tx, id uint64, now string) error {
	q := r.db.Dialect.Rebind(`UPDATE slot_availability SET is_available = ?, updated_at = ? WHERE id = ?`)
	_, err := tx.ExecContext(ctx, q, false, now, id)
	return err
}

// OpenSlotRow is an open availability row joined with its definition, as
// returned by ListOpenByStore.
type OpenSlotRow struct {
	AvailabilityID uint64
	SlotID         uint64
	Date           string
	Name           string
	StartTime      string
	EndTime        string
	Capacity       uint32
	BookedCount    uint32
	PriceCents     uint32
	Zones          []string
}

// ListOpenByStore returns available rows of active definitions of a store
// with dates in [start, end], ordered by date, start time and slot ID.
func (r *AvailabilityRepo) ListOpenByStore(ctx context.Context, storeID uint64, start, end string) ([]OpenSlotRow, error) {
	q := r.db.Dialect.Rebind(`SELECT a.id, a.slot_id, a.slot_date, d.name, d.start_time, d.end_time,
	             a.capacity, a.booked_count, d.price_cents, d.zones
	      FROM slot_availability a
	      JOIN slot_definitions d ON d.id = a.slot_id
	      WHERE d.store_id = ? AND d.is_active = ?
	        AND a.is_available = ?
	        AND a.slot_date >= ? AND a.slot_date <= ?
	      ORDER BY a.slot_date, d.start_time, a.slot_id`)
	rows, err := r.db.QueryContext(ctx, q, storeID, true, true, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OpenSlotRow
	for rows.Next() {
		var o OpenSlotRow
		var zones sql.NullString
		if err := rows.Scan(&o.AvailabilityID, &o.SlotID, &o.Date, &o.Name, &o.StartTime, &o.EndTime,
			&o.Capacity, &o.BookedCount, &o.PriceCents, &zones); err != nil {
			return nil, err
		}
		if zones.Valid {
			o.Zones = decodeZones(zones.String)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SlotWindowTx returns the owning store and time window of a slot definition
// inside tx.  It does not lock the definition.
func (r *AvailabilityRepo) SlotWindowTx(ctx context.Context, tx *sql.Tx, slotID uint64) (storeID uint64, startTime, endTime string, err error) {
	q := r.db.Dialect.Rebind(`SELECT store_id, start_time, end_time FROM slot_definitions WHERE id = ?`)
	err = tx.QueryRowContext(ctx, q, slotID).Scan(&storeID, &startTime, &endTime)
	if err == sql.ErrNoRows {
		err = ErrNotFound
	}
	return storeID, startTime, endTime, err
}

func scanAvailability(s rowScanner) (*model.SlotAvailability, error) {
	var a model.SlotAvailability
	if err := s.Scan(&a.ID, &a.SlotID, &a.Date, &a.Capacity, &a.BookedCount, &a.IsAvailable, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
