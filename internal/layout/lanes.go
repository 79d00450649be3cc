// Package layout assigns overlapping events to stacking lanes within each
// week of a calendar window and maps dates and lanes to pixel positions.
//
// The lane assignment is classic interval coloring: per week, events are
// sorted by visible range and placed first-fit into the lowest lane whose
// previous occupant ended strictly before the new event starts. For
// interval graphs this greedy order is optimal, so the lane count per week
// equals the maximum number of events overlapping on any single date.
package layout

import (
	"fmt"
	"sort"
	"time"

	"vacal/internal/caldate"
	"vacal/internal/event"
)

// Span is the portion of an event visible within one week, plus its
// assigned lane. The same event yields an independent Span per week it
// crosses; lanes carry no meaning across weeks.
type Span struct {
	Event event.Event

	// Start and End bound the visible sub-range within the week,
	// inclusive on both ends.
	Start time.Time
	End   time.Time

	// Lane is the vertical stacking slot, 0 at the top.
	Lane int
}

// Assign computes the per-week lane layout for all events intersecting the
// window. The result has one slice per week, ordered by (Start, End) with
// input order as the final tiebreak, so identical inputs always produce
// identical output.
func Assign(win caldate.Window, events []event.Event) [][]Span {
	rows := make([][]Span, len(win.Weeks))
	for i, week := range win.Weeks {
		rows[i] = assignWeek(week, events)
	}
	return rows
}

func assignWeek(week caldate.Week, events []event.Event) []Span {
	weekStart, weekEnd, ok := week.Bounds()
	if !ok {
		return nil
	}

	spans := make([]Span, 0, len(events))
	for _, ev := range events {
		if ev.End.Before(weekStart) || ev.Start.After(weekEnd) {
			continue
		}
		vs := ev.Start
		if vs.Before(weekStart) {
			vs = weekStart
		}
		ve := ev.End
		if ve.After(weekEnd) {
			ve = weekEnd
		}
		// Clipping at week boundaries can only shrink the range; an
		// inversion here means the loader broke its contract.
		if ve.Before(vs) {
			panic(fmt.Sprintf("layout: inverted visible range %s > %s for %q",
				vs.Format("2006-01-02"), ve.Format("2006-01-02"), ev.Name))
		}
		spans = append(spans, Span{Event: ev, Start: vs, End: ve})
	}

	// Stable sort keeps input order for fully tied ranges.
	sort.SliceStable(spans, func(i, j int) bool {
		if !spans[i].Start.Equal(spans[j].Start) {
			return spans[i].Start.Before(spans[j].Start)
		}
		return spans[i].End.Before(spans[j].End)
	})

	// First-fit placement. laneEnds[k] is the end date of the last span
	// placed in lane k; a lane is free only if that date is strictly
	// before the candidate's start, so spans touching on the same day
	// still stack.
	laneEnds := make([]time.Time, 0, 4)
	for i := range spans {
		lane := -1
		for k, end := range laneEnds {
			if end.Before(spans[i].Start) {
				lane = k
				break
			}
		}
		if lane < 0 {
			laneEnds = append(laneEnds, spans[i].End)
			lane = len(laneEnds) - 1
		} else {
			laneEnds[lane] = spans[i].End
		}
		spans[i].Lane = lane
	}

	return spans
}
