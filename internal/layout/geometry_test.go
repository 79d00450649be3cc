package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacal/internal/caldate"
)

func TestColumnIndexWithPadding(t *testing.T) {
	// July 2025: the first week is padded up to Tuesday, so weekday
	// arithmetic would be wrong and only exact lookup works.
	win := caldate.Month(date(2025, time.July, 15), time.Sunday)

	cols := ColumnIndex(win.Weeks[0])
	require.Len(t, cols, 5)
	assert.Equal(t, 2, cols[date(2025, time.July, 1)])
	assert.Equal(t, 6, cols[date(2025, time.July, 5)])

	_, ok := cols[date(2025, time.June, 30)]
	assert.False(t, ok, "padded cells have no column")
}

func TestColumnIndexFullWeek(t *testing.T) {
	win := caldate.Rolling(date(2025, time.August, 10), 0, 1, time.Sunday)
	cols := ColumnIndex(win.Weeks[0])
	require.Len(t, cols, caldate.DaysPerWeek)
	for c := 0; c < caldate.DaysPerWeek; c++ {
		assert.Equal(t, c, cols[win.Start.AddDate(0, 0, c)])
	}
}

func TestGeometry(t *testing.T) {
	g := Geometry{
		OriginX:      20,
		OriginY:      120,
		CellWidth:    100,
		CellHeight:   110,
		BandTopInset: 22,
		BandHeight:   18,
		BandGap:      3,
	}

	assert.Equal(t, 20.0, g.CellX(0))
	assert.Equal(t, 320.0, g.CellX(3))
	assert.Equal(t, 120.0, g.RowY(0))
	assert.Equal(t, 340.0, g.RowY(2))

	assert.Equal(t, 142.0, g.BandY(0, 0))
	assert.Equal(t, 163.0, g.BandY(0, 1))
	assert.Equal(t, 142.0+110, g.BandY(1, 0))

	// (110-22+3) / (18+3) = 4.33 -> 4 bands fit.
	assert.Equal(t, 4, g.MaxLanes())
}

func TestGeometryMaxLanesDegenerate(t *testing.T) {
	assert.Equal(t, 0, Geometry{}.MaxLanes())
	assert.Equal(t, 0, Geometry{CellHeight: 10, BandTopInset: 12, BandHeight: 18}.MaxLanes())
}
