package models

import (
	"fmt"
	"time"
)

// DayLayout is the wire and storage format of a calendar day bucket.
const DayLayout = "2006-01-02"

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses an ISO calendar day. Full RFC 3339 timestamps are accepted
// and bucketed by their UTC day.
func ParseDay(s string) (string, error) {
	if d, err := time.Parse(DayLayout, s); err == nil {
		return d.Format(DayLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayKey(t), nil
	}
	return "", fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}
