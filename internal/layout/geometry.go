package layout

import (
	"time"

	"vacal/internal/caldate"
)

// ColumnIndex precomputes the date-to-column lookup for one week. Columns
// must be resolved by exact date match rather than day-of-week arithmetic,
// because padded cells in month mode break the pure weekday formula.
func ColumnIndex(week caldate.Week) map[time.Time]int {
	cols := make(map[time.Time]int, caldate.DaysPerWeek)
	for c, d := range week.Days {
		if d.IsZero() {
			continue
		}
		cols[d] = c
	}
	return cols
}

// Geometry converts grid coordinates to pixel positions for the renderer.
// All values are in SVG user units.
type Geometry struct {
	// OriginX, OriginY locate the top-left corner of the first cell.
	OriginX float64
	OriginY float64

	CellWidth  float64
	CellHeight float64

	// BandTopInset is the vertical space reserved at the top of each cell
	// for the day number before the first event band.
	BandTopInset float64
	// BandHeight and BandGap size the stacked event bands.
	BandHeight float64
	BandGap    float64
}

// CellX returns the left edge of a column.
func (g Geometry) CellX(col int) float64 {
	return g.OriginX + float64(col)*g.CellWidth
}

// RowY returns the top edge of a week row.
func (g Geometry) RowY(row int) float64 {
	return g.OriginY + float64(row)*g.CellHeight
}

// BandY returns the top edge of an event band at the given lane within a
// week row.
func (g Geometry) BandY(row, lane int) float64 {
	return g.RowY(row) + g.BandTopInset + float64(lane)*(g.BandHeight+g.BandGap)
}

// MaxLanes reports how many bands fit inside a cell without spilling into
// the next row. The renderer clamps deeper lanes rather than overdrawing.
func (g Geometry) MaxLanes() int {
	usable := g.CellHeight - g.BandTopInset
	if usable <= 0 || g.BandHeight <= 0 {
		return 0
	}
	return int((usable + g.BandGap) / (g.BandHeight + g.BandGap))
}
