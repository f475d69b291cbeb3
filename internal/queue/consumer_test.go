package queue

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteAuditLine(t *testing.T) {
	ev := BookingEvent{
		Type:       EventBookingCancelled,
		BookingID:  "b-1",
		OrderID:    "o-1",
		StoreID:    3,
		SlotID:     9,
		Date:       "2025-03-04",
		StartTime:  "09:00",
		EndTime:    "11:00",
		Remaining:  1,
		OccurredAt: "2025-03-03 09:00:00",
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteAuditLine(&buf, body); err != nil {
		t.Fatalf("WriteAuditLine failed: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		"[2025-03-03 09:00:00] Booking cancelled",
		"booking_id=b-1",
		"customer_id=-",
		"slot_id=9",
		"window=09:00-11:00",
		"remaining=1",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("audit line %q lacks %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 || !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected exactly one terminated line, got %q", line)
	}
}

func TestWriteAuditLine_RejectsBadPayloads(t *testing.T) {
	for _, body := range []string{`not json`, `{"type":""}`, `{"type":"slot.booking.confirmed"}`} {
		if err := WriteAuditLine(&bytes.Buffer{}, []byte(body)); err == nil {
			t.Fatalf("expected an error for %s", body)
		}
	}
}
