package model

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking reserves exactly one unit of a SlotAvailability for one order.
// Bookings are never deleted; cancellation flips the status and stamps
// CancelledAt.
//
// Fields:
//  ID             – UUID primary key.
//  AvailabilityID – reserved slot_availability row.
//  OrderID        – external order reference; one confirmed booking per order.
//  CustomerID     – optional customer reference.
//  Status         – confirmed or cancelled.
//  CreatedAt      – creation timestamp (UTC, "YYYY-MM-DD HH:MM:SS").
//  CancelledAt    – cancellation timestamp, nil while confirmed.
type Booking struct {
	ID             string  // bookings.id
	AvailabilityID uint64  // bookings.availability_id
	OrderID        string  // bookings.order_id
	CustomerID     *string // bookings.customer_id (nullable)
	Status         string  // bookings.status
	CreatedAt      string  // bookings.created_at
	CancelledAt    *string // bookings.cancelled_at (nullable)
}
