package repository

import (
	"strconv"
	"strings"
	"time"
)

// encodeWeekdays stores a weekday set as a sorted, comma separated list of
// day numbers (Sunday = 0).
func encodeWeekdays(days []time.Weekday) string {
	var seen [7]bool
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			seen[d] = true
		}
	}
	parts := make([]string, 0, 7)
	for i, ok := range seen {
		if ok {
			parts = append(parts, strconv.Itoa(i))
		}
	}
	return strings.Join(parts, ",")
}

// decodeWeekdays parses the column written by encodeWeekdays.  Unknown tokens
// are skipped.
func decodeWeekdays(s string) []time.Weekday {
	var out []time.Weekday
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, time.Weekday(n))
	}
	return out
}

func encodeZones(zones []string) *string {
	clean := make([]string, 0, len(zones))
	for _, z := range zones {
		if z = strings.TrimSpace(z); z != "" {
			clean = append(clean, z)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	s := strings.Join(clean, ",")
	return &s
}

func decodeZones(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
