package clock

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

const dayLayout = "2006-01-02"

// Day is a calendar day counted from 1970-01-01. Days compare as integers.
type Day int32

// DayOf returns the calendar day of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / secondsPerDay)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day(t.Unix() / secondsPerDay), nil
}

// FromDate converts a date (only year, month, day are used) to a Day.
func FromDate(t time.Time) Day {
	y, m, d := t.Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// Date returns midnight UTC of the day, suitable for DATE columns.
func (d Day) Date() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// Start returns the first instant of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	y, m, dd := d.Date().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

// Add returns the day n days later (n may be negative).
func (d Day) Add(n int) Day { return d + Day(n) }

// Before reports whether d precedes o.
func (d Day) Before(o Day) bool { return d < o }

func (d Day) String() string { return d.Date().Format(dayLayout) }
