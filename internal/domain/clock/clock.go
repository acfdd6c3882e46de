// Package clock supplies the current instant and the quota calendar day.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock frozen at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the frozen instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Calendar combines a Clock with the deployment's reference timezone.
// Every read and write path derives the quota day through the same Calendar.
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// NewCalendar creates a Calendar. A nil clock means the wall clock, a nil location means UTC.
func NewCalendar(c Clock, loc *time.Location) *Calendar {
	if c == nil {
		c = System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{clock: c, loc: loc}
}

// LoadCalendar resolves an IANA timezone name (empty = UTC).
func LoadCalendar(c Clock, tz string) (*Calendar, error) {
	if tz == "" {
		return NewCalendar(c, time.UTC), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return NewCalendar(c, loc), nil
}

// Now returns the current instant.
func (c *Calendar) Now() time.Time { return c.clock.Now() }

// Today returns the current quota day.
func (c *Calendar) Today() Day { return DayOf(c.clock.Now(), c.loc) }

// Location returns the reference timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// NextReset returns the instant at which today's counters stop applying.
func (c *Calendar) NextReset() time.Time {
	return c.Today().Add(1).Start(c.loc)
}
