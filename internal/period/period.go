// Package period provides pure calendar-window math for budget periods.
// All windows are half-open [start, end): the end instant belongs to the
// next period. The package never reads the wall clock; callers pass the
// reference time explicitly.
package period

import "time"

// Unit represents the recurrence unit of a budget period.
type Unit string

const (
	UnitWeekly    Unit = "weekly"
	UnitMonthly   Unit = "monthly"
	UnitQuarterly Unit = "quarterly"
	UnitYearly    Unit = "yearly"
)

// Valid reports whether u is a known period unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitWeekly, UnitMonthly, UnitQuarterly, UnitYearly:
		return true
	}
	return false
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resolve maps an anchor date to the budget window containing it.
// Weekly windows start at the anchor's midnight; the calendar units start
// at the first day of the anchor's month.
func Resolve(u Unit, anchor time.Time) Window {
	switch u {
	case UnitWeekly:
		start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case UnitQuarterly:
		start := firstOfMonth(anchor)
		return Window{Start: start, End: start.AddDate(0, 3, 0)}
	case UnitYearly:
		start := firstOfMonth(anchor)
		return Window{Start: start, End: start.AddDate(1, 0, 0)}
	default: // monthly
		start := firstOfMonth(anchor)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	}
}

// Previous returns the window immediately before w for the given unit.
func (w Window) Previous(u Unit) Window {
	switch u {
	case UnitWeekly:
		return Window{Start: w.Start.AddDate(0, 0, -7), End: w.Start}
	case UnitQuarterly:
		return Window{Start: w.Start.AddDate(0, -3, 0), End: w.Start}
	case UnitYearly:
		return Window{Start: w.Start.AddDate(-1, 0, 0), End: w.Start}
	default:
		return Window{Start: w.Start.AddDate(0, -1, 0), End: w.Start}
	}
}

// Contains reports whether t falls inside the half-open window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
