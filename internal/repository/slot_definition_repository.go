package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/model"
)

// SlotDefinitionRepo reads recurring slot definitions.  Definitions belong to
// the store configuration flows; Create exists for seeding environments and
// tests and is not used by the reservation engine.
type SlotDefinitionRepo struct {
	db *database.DB
}

// NewSlotDefinitionRepo returns a new SlotDefinitionRepo bound to the given database.
func NewSlotDefinitionRepo(db *database.DB) *SlotDefinitionRepo {
	return &SlotDefinitionRepo{db: db}
}

const slotDefinitionColumns = `id, store_id, name, start_time, end_time, capacity, days_of_week, zones, price_cents, is_active, created_at`

// Create inserts a definition and populates its generated ID.
func (r *SlotDefinitionRepo) Create(ctx context.Context, d *model.SlotDefinition) error {
	if d.CreatedAt == "" {
		d.CreatedAt = time.Now().UTC().Format(model.TimestampLayout)
	}
	q := `INSERT INTO slot_definitions (store_id, name, start_time, end_time, capacity, days_of_week, zones, price_cents, is_active, created_at)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{d.StoreID, d.Name, d.StartTime, d.EndTime, d.Capacity,
		encodeWeekdays(d.DaysOfWeek), encodeZones(d.Zones), d.PriceCents, d.IsActive, d.CreatedAt}

	// pgx has no LastInsertId; RETURNING works on PostgreSQL and SQLite
	if r.db.Dialect.Name != database.DialectMySQL {
		var id int64
		if err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q+` RETURNING id`), args...).Scan(&id); err != nil {
			return err
		}
		d.ID = uint64(id)
		return nil
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// GetByID returns a definition regardless of its active flag.
func (r *SlotDefinitionRepo) GetByID(ctx context.Context, id uint64) (*model.SlotDefinition, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + slotDefinitionColumns + ` FROM slot_definitions WHERE id = ?`)
	d, err := scanSlotDefinition(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// ListActiveByStore returns the active definitions of a store ordered by
// start time.
func (r *SlotDefinitionRepo) ListActiveByStore(ctx context.Context, storeID uint64) ([]model.SlotDefinition, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + slotDefinitionColumns + `
	      FROM slot_definitions
	      WHERE store_id = ? AND is_active = ?
	      ORDER BY start_time, id`)
	rows, err := r.db.QueryContext(ctx, q, storeID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []model.SlotDefinition
	for rows.Next() {
		d, err := scanSlotDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

// ListStoresWithActive returns the IDs of stores that have at least one
// active definition, in ascending order.
func (r *SlotDefinitionRepo) ListStoresWithActive(ctx context.Context) ([]uint64, error) {
	q := r.db.Dialect.Rebind(`SELECT DISTINCT store_id FROM slot_definitions WHERE is_active = ? ORDER BY store_id`)
	rows, err := r.db.QueryContext(ctx, q, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlotDefinition(s rowScanner) (*model.SlotDefinition, error) {
	var d model.SlotDefinition
	var days string
	var zones sql.NullString
	if err := s.Scan(&d.ID, &d.StoreID, &d.Name, &d.StartTime, &d.EndTime, &d.Capacity,
		&days, &zones, &d.PriceCents, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.DaysOfWeek = decodeWeekdays(days)
	if zones.Valid {
		d.Zones = decodeZones(zones.String)
	}
	return &d, nil
}
