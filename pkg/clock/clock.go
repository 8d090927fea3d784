package clock

import "time"

// Clock supplies the current instant. Academic rules read "today" and the current
// calendar year through it so tests can pin arbitrary dates.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock reporting time in loc (UTC when nil).
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

type fixedClock struct {
	now time.Time
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// Today truncates the clock's current instant to midnight in its own location.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// Year returns the current calendar year.
func Year(c Clock) int {
	return c.Now().Year()
}

// DateOf drops the time-of-day component of t, keeping its location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameOrAfter reports whether date a falls on or after date b, ignoring time of day.
func SameOrAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad >= bd
}
