// Package schedule holds the pure parts of the lesson engine: recurrence
// expansion, interval arithmetic and cancellation fee computation. Nothing in
// this package touches storage.
package schedule

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds the occupied interval of a lesson starting at start and
// lasting the given number of minutes.
func NewInterval(start time.Time, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Overlaps reports whether two half-open intervals intersect:
// a.Start < b.End && b.Start < a.End. Touching endpoints do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
