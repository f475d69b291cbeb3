// Package queue defines message payloads exchanged over the message broker
// together with the publisher used by the reservation engine and the audit
// consumer.
package queue

// Event types double as routing keys on the booking exchange.
const (
	EventBookingConfirmed = "slot.booking.confirmed"
	EventBookingCancelled = "slot.booking.cancelled"
)

// BookingEvent is published after a booking or cancellation commits.  It
// carries enough information for downstream consumers (notifications,
// analytics, audit) to act without querying the primary database.
type BookingEvent struct {
	Type       string `json:"type"`
	BookingID  string `json:"booking_id"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id,omitempty"`
	StoreID    uint64 `json:"store_id"`
	SlotID     uint64 `json:"slot_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Remaining  uint32 `json:"remaining"`
	OccurredAt string `json:"occurred_at"`
}
