package model

import "time"

// SlotDefinition is a recurring delivery window configured by a store.
// Definitions are owned by the store configuration flows; the reservation
// engine only reads active ones.  This struct corresponds to a row in the
// `slot_definitions` table.
//
// Fields:
//  ID         – primary key identifier.
//  StoreID    – store that offers the slot.
//  Name       – display name (e.g. "Morning").
//  StartTime  – window start, "HH:MM" in the store's local time.
//  EndTime    – window end, "HH:MM".
//  Capacity   – deliveries accepted per date, always positive.
//  DaysOfWeek – weekdays on which the slot runs (Sunday = 0).
//  Zones      – delivery zones the slot is restricted to; empty means any.
//  PriceCents – delivery fee, opaque to the engine.
//  IsActive   – inactive definitions are never generated or offered.
type SlotDefinition struct {
	ID         uint64         // slot_definitions.id
	StoreID    uint64         // slot_definitions.store_id
	Name       string         // slot_definitions.name
	StartTime  string         // slot_definitions.start_time
	EndTime    string         // slot_definitions.end_time
	Capacity   uint32         // slot_definitions.capacity
	DaysOfWeek []time.Weekday // slot_definitions.days_of_week (comma separated)
	Zones      []string       // slot_definitions.zones (comma separated, nullable)
	PriceCents uint32         // slot_definitions.price_cents
	IsActive   bool           // slot_definitions.is_active
	CreatedAt  string         // slot_definitions.created_at
}

// RunsOn reports whether the definition produces a slot on the given weekday.
func (d SlotDefinition) RunsOn(day time.Weekday) bool {
	for _, w := range d.DaysOfWeek {
		if w == day {
			return true
		}
	}
	return false
}

// ServesZone reports whether a customer in zone may book this slot.  An empty
// zone filter and an unrestricted definition both match.
func (d SlotDefinition) ServesZone(zone string) bool {
	if zone == "" || len(d.Zones) == 0 {
		return true
	}
	for _, z := range d.Zones {
		if z == zone {
			return true
		}
	}
	return false
}
