// Package render emits the calendar as a standalone SVG document: title,
// weekday header, date grid with weekend and today tints, and the stacked
// event bands laid out by internal/layout.
package render

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
	"vacal/internal/layout"
)

// Cell background tints.
const (
	sundayBG   = "#fde2e2"
	saturdayBG = "#e5f1ff"
	todayBG    = "#fff8b3"
	plainBG    = "#ffffff"
)

// Options controls canvas dimensions and labeling. Zero values fall back
// to the defaults set by Normalize.
type Options struct {
	Width  int
	Height int

	// Title is drawn in the header, e.g. "August 2026".
	Title string

	// WeekdayLabels are the seven column headers in grid order. When
	// empty they are derived from weekStart using English short names.
	WeekdayLabels []string

	margin   float64
	headerH  float64
	weekdayH float64
}

// Normalize fills defaults and derives weekday labels for the given first
// weekday of the grid.
func (o *Options) Normalize(weekStart time.Weekday) {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	o.margin = 20
	o.headerH = 70
	o.weekdayH = 30
	if len(o.WeekdayLabels) != caldate.DaysPerWeek {
		labels := make([]string, caldate.DaysPerWeek)
		for i := range labels {
			wd := time.Weekday((int(weekStart) + i) % caldate.DaysPerWeek)
			labels[i] = wd.String()[:3]
		}
		o.WeekdayLabels = labels
	}
}

// geometry derives the pixel mapping for the configured canvas and row
// count.
func (o Options) geometry(rows int) layout.Geometry {
	return layout.Geometry{
		OriginX:      o.margin,
		OriginY:      o.margin + o.headerH + o.weekdayH,
		CellWidth:    (float64(o.Width) - o.margin*2) / caldate.DaysPerWeek,
		CellHeight:   (float64(o.Height) - o.margin*2 - o.headerH - o.weekdayH) / float64(rows),
		BandTopInset: 22,
		BandHeight:   18,
		BandGap:      3,
	}
}

// SVG renders the window and its per-week spans into an SVG document.
// today receives a highlight tint; pass the zero time to disable it.
func SVG(win caldate.Window, rows [][]layout.Span, today time.Time, opts Options) []byte {
	g := opts.geometry(len(win.Weeks))

	var b strings.Builder
	writeHeader(&b, opts)
	writeWeekdays(&b, opts)
	writeGrid(&b, win, today, g)
	writeBands(&b, win, rows, g)
	b.WriteString("</svg>\n")
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, opts Options) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">
  <style>
    .title { font-family: "Noto Sans CJK JP","Noto Sans",sans-serif; font-size: 28px; font-weight: 700; fill: #333; }
    .weekday, .day-number, .event { font-family: "Noto Sans CJK JP","Noto Sans",sans-serif; fill: #222; }
    .weekday { font-size: 16px; font-weight: 600; }
    .day-number { font-size: 14px; }
    .event { font-size: 14px; }
    .cell { fill: #fff; stroke: #ddd; }
  </style>
  <rect x="0" y="0" width="%d" height="%d" fill="#fff"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)
	fmt.Fprintf(b, "  <text class=\"title\" x=\"%g\" y=\"%g\">%s</text>\n",
		opts.margin, opts.margin+40, escapeXML(opts.Title))
}

func writeWeekdays(b *strings.Builder, opts Options) {
	y := opts.margin + opts.headerH
	cellW := (float64(opts.Width) - opts.margin*2) / caldate.DaysPerWeek
	for i, label := range opts.WeekdayLabels {
		x := opts.margin + float64(i)*cellW
		fmt.Fprintf(b, "  <text class=\"weekday\" x=\"%g\" y=\"%g\">%s</text>\n",
			x+8, y+22, escapeXML(label))
	}
}

func writeGrid(b *strings.Builder, win caldate.Window, today time.Time, g layout.Geometry) {
	for r, week := range win.Weeks {
		for c, d := range week.Days {
			x := g.CellX(c)
			y := g.RowY(r)
			fill := plainBG
			if !d.IsZero() {
				fill = dayBG(d)
				if d.Equal(today) {
					fill = todayBG
				}
			}
			fmt.Fprintf(b, "  <rect class=\"cell\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"#ddd\"/>\n",
				x, y, g.CellWidth, g.CellHeight, fill)
			if !d.IsZero() {
				fmt.Fprintf(b, "  <text class=\"day-number\" x=\"%g\" y=\"%g\">%d</text>\n",
					x+g.CellWidth-22, y+18, d.Day())
			}
		}
	}
}

func writeBands(b *strings.Builder, win caldate.Window, rows [][]layout.Span, g layout.Geometry) {
	maxLanes := g.MaxLanes()
	for r, spans := range rows {
		if r >= len(win.Weeks) {
			break
		}
		cols := layout.ColumnIndex(win.Weeks[r])
		for _, sp := range spans {
			if sp.Lane >= maxLanes {
				log.WithFields(log.Fields{"week": r, "lane": sp.Lane, "name": sp.Event.Name}).
					Debug("band does not fit in cell, skipping")
				continue
			}
			startCol, ok := cols[sp.Start]
			if !ok {
				continue
			}
			endCol, ok := cols[sp.End]
			if !ok {
				continue
			}

			x := g.CellX(startCol)
			w := g.CellX(endCol) + g.CellWidth - x - 3
			if w < 10 {
				w = 10
			}
			y := g.BandY(r, sp.Lane)

			label := sp.Event.Name
			if sp.Event.Title != "" {
				if label != "" {
					label += ": "
				}
				label += sp.Event.Title
			}

			fmt.Fprintf(b, "  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"#b0b0b0\"/>\n",
				x+2, y, w, g.BandHeight, bandColor(sp.Event.Name, sp.Event.Title))
			fmt.Fprintf(b, "  <text class=\"event\" x=\"%g\" y=\"%g\">%s</text>\n",
				x+6, y+g.BandHeight-4, escapeXML(label))
		}
	}
}

// dayBG tints Sundays and Saturdays by actual weekday, independent of grid
// column.
func dayBG(d time.Time) string {
	switch d.Weekday() {
	case time.Sunday:
		return sundayBG
	case time.Saturday:
		return saturdayBG
	default:
		return plainBG
	}
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
