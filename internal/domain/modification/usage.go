package modification

import "time"

// DateLayout formats the UTC calendar day a usage record belongs to.
const DateLayout = "2006-01-02"

// UsageRecord counts one user's modifications on one UTC calendar day.
type UsageRecord struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Count  int    `json:"count"`
}

// Usage is reported back to the caller with every modification.
type Usage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// NewUsage clamps remaining at zero.
func NewUsage(used, limit int) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Used: used, Limit: limit, Remaining: remaining}
}

// Day returns the UTC calendar day of t formatted with DateLayout.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NextReset returns the start of the UTC day after t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
