package repository

import (
	"reflect"
	"testing"
	"time"
)

func TestWeekdayCodec(t *testing.T) {
	in := []time.Weekday{time.Saturday, time.Monday, time.Sunday, time.Monday, time.Weekday(9)}
	enc := encodeWeekdays(in)
	if enc != "0,1,6" {
		t.Fatalf("encodeWeekdays = %q", enc)
	}
	if got := decodeWeekdays(enc); !reflect.DeepEqual(got, []time.Weekday{time.Sunday, time.Monday, time.Saturday}) {
		t.Fatalf("decodeWeekdays = %v", got)
	}
	if got := decodeWeekdays(" 2 , x, 8,3"); !reflect.DeepEqual(got, []time.Weekday{time.Tuesday, time.Wednesday}) {
		t.Fatalf("decodeWeekdays skipped wrong tokens: %v", got)
	}
}

func TestZoneCodec(t *testing.T) {
	if encodeZones(nil) != nil || encodeZones([]string{" ", ""}) != nil {
		t.Fatalf("empty zone lists must be stored as NULL")
	}
	enc := encodeZones([]string{" north", "south "})
	if enc == nil || *enc != "north,south" {
		t.Fatalf("encodeZones = %v", enc)
	}
	if got := decodeZones(*enc); !reflect.DeepEqual(got, []string{"north", "south"}) {
		t.Fatalf("decodeZones = %v", got)
	}
}
