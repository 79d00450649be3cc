// Package event loads date-ranged vacation events from JSON files and ICS
// feeds and normalizes them against the visible calendar window.
package event

import (
	"time"

	"vacal/internal/caldate"
)

// Event is one normalized, window-clipped vacation entry. Start and End are
// inclusive UTC calendar dates with Start <= End. Events are immutable once
// they leave this package.
type Event struct {
	// Name identifies the owner (the person on vacation).
	Name string
	// Title is the free-form label shown on the event band.
	Title string

	Start time.Time
	End   time.Time
}

// raw is a parsed record before window normalization. Start and end are
// still instants; normalization collapses them to UTC calendar dates.
type raw struct {
	name  string
	title string
	start time.Time
	end   time.Time
}

// normalize turns parsed records into window-clipped events:
//
//   - instants collapse to their UTC calendar date
//   - inverted ranges are repaired by swapping
//   - records entirely outside the window are discarded
//   - survivors are clipped to the window bounds
//   - duplicate (name, start, end) records collapse, last seen wins,
//     keeping the position of the first occurrence
func normalize(records []raw, win caldate.Window) []Event {
	type key struct {
		name       string
		start, end time.Time
	}

	out := make([]Event, 0, len(records))
	seen := make(map[key]int, len(records))

	for _, r := range records {
		start := caldate.DateOf(r.start)
		end := caldate.DateOf(r.end)
		if end.Before(start) {
			start, end = end, start
		}

		if !win.Contains(start, end) {
			continue
		}
		if start.Before(win.Start) {
			start = win.Start
		}
		if end.After(win.End) {
			end = win.End
		}

		ev := Event{Name: r.name, Title: r.title, Start: start, End: end}
		k := key{name: ev.Name, start: ev.Start, end: ev.End}
		if i, ok := seen[k]; ok {
			out[i] = ev
			continue
		}
		seen[k] = len(out)
		out = append(out, ev)
	}

	return out
}
