// Package model defines the core data structures for the bean-flow application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of day-precision dates.
const DateLayout = "2006-01-02"

// Moment is a point in time whose time-of-day may be unknown.
// Statements often carry only a posting date; resolvers that depend on the
// hour must check HasClock before reading it. A nil *Moment means no
// timestamp at all.
type Moment struct {
	time.Time
	HasClock bool
}

// At returns a moment known to the hour.
func At(t time.Time) *Moment {
	return &Moment{Time: t, HasClock: true}
}

// OnDate returns a moment known only to the day.
func OnDate(t time.Time) *Moment {
	return &Moment{Time: Day(t)}
}

// Hour reports the local hour and whether it is known.
func (m *Moment) Hour() (int, bool) {
	if m == nil || !m.HasClock {
		return 0, false
	}
	return m.Time.Hour(), true
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b.
// Month and year boundaries are crossed naturally.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 12, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 12, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// ParseMoment accepts RFC 3339 timestamps, which carry the hour, and plain
// dates in the local zone, which do not.
func ParseMoment(s string) (*Moment, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return At(t), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("time %q is neither RFC 3339 nor %s", s, DateLayout)
	}
	return OnDate(t), nil
}
