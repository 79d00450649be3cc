package event

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacal/internal/caldate"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// augustWindow covers 2025-08-01 through 2025-08-31.
func augustWindow(t *testing.T) caldate.Window {
	t.Helper()
	win := caldate.Month(date(2025, time.August, 15), time.Sunday)
	require.Equal(t, date(2025, time.August, 1), win.Start)
	require.Equal(t, date(2025, time.August, 31), win.End)
	return win
}

func TestParseTimestampVariants(t *testing.T) {
	win := augustWindow(t)

	const data = `[
		{"start": "2025-08-11T15:00:00.000Z", "end": "2025-08-12T15:00:00.000Z", "name": "aiko", "title": "trip"},
		{"start": "2025-08-12T08:00:00+09:00", "end": "2025-08-12T20:00:00+09:00", "name": "ben", "title": "offsite"},
		{"start": "2025-08-13T10:00:00", "end": "2025-08-14T10:00:00", "name": "carol", "title": "pto"},
		{"start": "2025-08-15", "end": "2025-08-16", "name": "dan", "title": ""}
	]`

	events, err := Parse(strings.NewReader(data), win)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, Event{Name: "aiko", Title: "trip", Start: date(2025, time.August, 11), End: date(2025, time.August, 12)}, events[0])
	// +09:00 offsets collapse to the UTC calendar date: 08:00 JST is the
	// previous day 23:00 UTC.
	assert.Equal(t, date(2025, time.August, 11), events[1].Start)
	assert.Equal(t, date(2025, time.August, 12), events[1].End)
	assert.Equal(t, date(2025, time.August, 13), events[2].Start)
	assert.Equal(t, Event{Name: "dan", Title: "", Start: date(2025, time.August, 15), End: date(2025, time.August, 16)}, events[3])
}

func TestParseRepairsInvertedRange(t *testing.T) {
	win := augustWindow(t)

	const data = `[{"start": "2025-08-20", "end": "2025-08-18", "name": "aiko", "title": "swapped"}]`
	events, err := Parse(strings.NewReader(data), win)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, date(2025, time.August, 18), events[0].Start)
	assert.Equal(t, date(2025, time.August, 20), events[0].End)
}

func TestParseClipsToWindow(t *testing.T) {
	win := augustWindow(t)

	const data = `[
		{"start": "2025-07-28", "end": "2025-08-03", "name": "before", "title": ""},
		{"start": "2025-08-30", "end": "2025-09-05", "name": "after", "title": ""},
		{"start": "2025-07-01", "end": "2025-07-20", "name": "outside", "title": ""}
	]`
	events, err := Parse(strings.NewReader(data), win)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, ev := range events {
		assert.False(t, ev.Start.Before(win.Start))
		assert.False(t, ev.End.After(win.End))
		assert.False(t, ev.End.Before(ev.Start))
	}
	assert.Equal(t, win.Start, events[0].Start)
	assert.Equal(t, win.End, events[1].End)
}

func TestParseDeduplicates(t *testing.T) {
	win := augustWindow(t)

	const data = `[
		{"start": "2025-08-05", "end": "2025-08-07", "name": "aiko", "title": "first"},
		{"start": "2025-08-10", "end": "2025-08-11", "name": "ben", "title": "keep"},
		{"start": "2025-08-05", "end": "2025-08-07", "name": "aiko", "title": "last wins"}
	]`
	events, err := Parse(strings.NewReader(data), win)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// The duplicate keeps the position of the first occurrence but the
	// fields of the last.
	assert.Equal(t, "aiko", events[0].Name)
	assert.Equal(t, "last wins", events[0].Title)
	assert.Equal(t, "ben", events[1].Name)
}

func TestParseSkipsMalformedRecords(t *testing.T) {
	win := augustWindow(t)

	const data = `[
		{"start": "2025-08-01", "end": "2025-08-02", "name": "v1", "title": ""},
		{"start": "not-a-date", "end": "2025-08-02", "name": "broken", "title": ""},
		{"start": "2025-08-03", "end": "2025-08-04", "name": "v2", "title": ""},
		{"start": "2025-08-05", "end": "", "name": "empty-end", "title": ""},
		{"start": "2025-08-06", "end": "2025-08-07", "name": "v3", "title": ""},
		{"start": "2025-08-08", "end": "2025-08-09", "name": "v4", "title": ""},
		{"start": "2025-08-10", "end": "2025-08-11", "name": "v5", "title": ""}
	]`
	events, err := Parse(strings.NewReader(data), win)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, want := range []string{"v1", "v2", "v3", "v4", "v5"} {
		assert.Equal(t, want, events[i].Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	win := augustWindow(t)
	events, err := Load(filepath.Join(t.TempDir(), "nope.json"), win)
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadFile(t *testing.T) {
	win := augustWindow(t)
	path := filepath.Join(t.TempDir(), "vacation_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"start":"2025-08-11T15:00:00.000Z","end":"2025-08-13T15:00:00.000Z","name":"aiko","title":"trip"}]`), 0o600))

	events, err := Load(path, win)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "aiko", events[0].Name)
}

func TestLoadBadJSON(t *testing.T) {
	win := augustWindow(t)
	path := filepath.Join(t.TempDir(), "vacation_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Load(path, win)
	assert.Error(t, err)
}

func TestParseStampRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "  ", "yesterday", "2025/08/11"} {
		_, err := parseStamp(s)
		assert.Error(t, err, "input %q", s)
	}
}
