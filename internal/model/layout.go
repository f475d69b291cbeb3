package model

// Storage layouts.  Dates, clock times and timestamps are persisted as fixed
// width strings so lexical order matches chronological order on every
// supported database.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	TimestampLayout = "2006-01-02 15:04:05"
)
