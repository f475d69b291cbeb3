package model

// SlotAvailability is one dated instance of a slot definition and carries the
// live capacity accounting for that date.  Capacity is copied from the
// definition when the row is generated so later edits to the definition do not
// affect dates that already exist.
//
// Fields:
//  ID          – primary key identifier.
//  SlotID      – owning slot definition.
//  Date        – calendar date, "YYYY-MM-DD".
//  Capacity    – capacity snapshot taken at generation time.
//  BookedCount – confirmed bookings currently held against the row.
//  IsAvailable – false once the row is full or explicitly disabled.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type SlotAvailability struct {
	ID          uint64 // slot_availability.id
	SlotID      uint64 // slot_availability.slot_id
	Date        string // slot_availability.slot_date
	Capacity    uint32 // slot_availability.capacity
	BookedCount uint32 // slot_availability.booked_count
	IsAvailable bool   // slot_availability.is_available
	CreatedAt   string // slot_availability.created_at
	UpdatedAt   string // slot_availability.updated_at
}

// Remaining returns the number of units that can still be booked.
func (a SlotAvailability) Remaining() uint32 {
	if a.BookedCount >= a.Capacity {
		return 0
	}
	return a.Capacity - a.BookedCount
}
