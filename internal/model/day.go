package model

import (
	"fmt"
	"time"
)

// DayLayout is the ISO day format used for every date key
const DayLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return t, nil
}

// DayKey formats t as YYYY-MM-DD
func DayKey(t time.Time) string {
	return Day(t).Format(DayLayout)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Positive when b is after a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AddDays shifts a day by n calendar days
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}
