package service

// BookRequest reserves one unit of a slot on a date for an order.
type BookRequest struct {
	SlotID     uint64
	Date       string // YYYY-MM-DD
	OrderID    string
	CustomerID string // optional
}

// SlotSnapshot describes the booked slot as of the committed booking.
type SlotSnapshot struct {
	SlotID            uint64 `json:"slot_id"`
	StoreID           uint64 `json:"store_id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	RemainingCapacity uint32 `json:"remaining_capacity"`
}

// BookingResult is returned by a successful Book.
type BookingResult struct {
	BookingID string       `json:"booking_id"`
	Slot      SlotSnapshot `json:"slot"`
}

// CancelRequest identifies the booking to cancel.  Exactly one field must be
// set.
type CancelRequest struct {
	BookingID string
	OrderID   string
}

// CancelResult is returned by a successful Cancel.
type CancelResult struct {
	OK        bool   `json:"ok"`
	BookingID string `json:"booking_id"`
	StoreID   uint64 `json:"-"`
	SlotID    uint64 `json:"-"`
	Date      string `json:"-"`
}

// QueryRequest selects bookable slots of a store in an inclusive date range.
type QueryRequest struct {
	StoreID uint64
	Start   string // YYYY-MM-DD
	End     string // YYYY-MM-DD
	Zone    string // optional delivery zone
}

// AvailableSlot is one bookable slot on a date.
type AvailableSlot struct {
	SlotID     uint64 `json:"slot_id"`
	Name       string `json:"name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Remaining  uint32 `json:"remaining"`
	PriceCents uint32 `json:"price_cents"`
}

// DayAvailability groups the bookable slots of one date.  Dates without any
// bookable slot are omitted from query results rather than returned empty.
type DayAvailability struct {
	Date  string          `json:"date"`
	Slots []AvailableSlot `json:"slots"`
}
