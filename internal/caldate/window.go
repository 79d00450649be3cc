// Package caldate builds the grid of calendar dates that a render pass
// displays: either one padded calendar month or a rolling span of whole
// weeks around a reference date.
package caldate

import (
	"fmt"
	"time"
)

// Mode selects how the visible window is anchored.
type Mode string

const (
	// ModeMonth shows the calendar month containing the reference date,
	// padded to MonthRows full weeks.
	ModeMonth Mode = "month"
	// ModeRolling shows a fixed number of complete weeks around the
	// reference date.
	ModeRolling Mode = "rolling"
)

const (
	// DaysPerWeek is the number of columns in every row of the grid.
	DaysPerWeek = 7

	// MonthRows is the fixed row count in month mode. Six rows fit any
	// month, including a 31-day month starting on the last weekday slot.
	MonthRows = 6

	// DefaultRollingWeeks is the total week count in rolling mode.
	DefaultRollingWeeks = 4
	// DefaultWeeksBefore is how many complete weeks precede the week
	// containing the reference date in rolling mode.
	DefaultWeeksBefore = 1
)

// Week is one row of the grid: seven consecutive calendar dates at UTC
// midnight. In month mode, leading or trailing cells outside the target
// month hold the zero time.
type Week struct {
	Days [DaysPerWeek]time.Time
}

// Bounds returns the first and last populated dates of the week. ok is
// false when every cell is padding.
func (w Week) Bounds() (first, last time.Time, ok bool) {
	for _, d := range w.Days {
		if d.IsZero() {
			continue
		}
		if !ok {
			first = d
			ok = true
		}
		last = d
	}
	return first, last, ok
}

// Window is the full grid of dates being rendered.
type Window struct {
	Weeks []Week

	// Start and End are the first and last populated dates (inclusive).
	Start time.Time
	End   time.Time
}

// Contains reports whether the date range [start, end] intersects the
// window at all.
func (w Window) Contains(start, end time.Time) bool {
	return !end.Before(w.Start) && !start.After(w.End)
}

// DateOf collapses an instant to its UTC calendar date, represented as a
// time.Time at UTC midnight. Event boundaries are day-granular, so this is
// the canonical date representation throughout the pipeline.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// columnOf returns the grid column for a date given the configured first
// weekday (0 = the weekStart column).
func columnOf(d time.Time, weekStart time.Weekday) int {
	return (int(d.Weekday()) - int(weekStart) + DaysPerWeek) % DaysPerWeek
}

// Month builds the window for the calendar month containing ref, padded
// with zero cells so that it always spans MonthRows complete weeks aligned
// on weekStart. December rolls into the next year correctly because the
// month bounds come from time.Date arithmetic.
func Month(ref time.Time, weekStart time.Weekday) Window {
	day := DateOf(ref)
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	startCol := columnOf(first, weekStart)

	weeks := make([]Week, MonthRows)
	d := first
	for r := 0; r < MonthRows; r++ {
		for c := 0; c < DaysPerWeek; c++ {
			idx := r*DaysPerWeek + c
			if idx < startCol || d.After(last) {
				continue // padded cell stays zero
			}
			weeks[r].Days[c] = d
			d = d.AddDate(0, 0, 1)
		}
	}

	return Window{Weeks: weeks, Start: first, End: last}
}

// Rolling builds a window of totalWeeks complete weeks aligned on
// weekStart, with weeksBefore complete weeks preceding the week that
// contains ref. Every cell is populated. Non-positive arguments fall back
// to the defaults.
func Rolling(ref time.Time, weeksBefore, totalWeeks int, weekStart time.Weekday) Window {
	if totalWeeks <= 0 {
		totalWeeks = DefaultRollingWeeks
	}
	if weeksBefore < 0 || weeksBefore >= totalWeeks {
		weeksBefore = DefaultWeeksBefore
		if weeksBefore >= totalWeeks {
			weeksBefore = totalWeeks - 1
		}
	}

	day := DateOf(ref)
	weekHead := day.AddDate(0, 0, -columnOf(day, weekStart))
	start := weekHead.AddDate(0, 0, -weeksBefore*DaysPerWeek)

	weeks := make([]Week, totalWeeks)
	d := start
	for r := range weeks {
		for c := 0; c < DaysPerWeek; c++ {
			weeks[r].Days[c] = d
			d = d.AddDate(0, 0, 1)
		}
	}

	return Window{
		Weeks: weeks,
		Start: start,
		End:   d.AddDate(0, 0, -1),
	}
}

// Build dispatches on mode. Unknown modes are an error so that a config
// typo fails loudly instead of rendering the wrong window.
func Build(mode Mode, ref time.Time, weeksBefore, totalWeeks int, weekStart time.Weekday) (Window, error) {
	switch mode {
	case ModeMonth:
		return Month(ref, weekStart), nil
	case ModeRolling:
		return Rolling(ref, weeksBefore, totalWeeks, weekStart), nil
	default:
		return Window{}, fmt.Errorf("caldate: unknown window mode %q", mode)
	}
}

// ParseWeekStart maps the config strings "sunday" and "monday" to a
// time.Weekday, defaulting to Sunday.
func ParseWeekStart(s string) time.Weekday {
	if s == "monday" {
		return time.Monday
	}
	return time.Sunday
}
