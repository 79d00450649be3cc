package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
)

// Record is the JSON wire shape of one vacation entry, as exported by the
// upstream form collector. Only start and end are required; name and title
// default to the empty string.
type Record struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Load reads a JSON array of records from path and normalizes it against
// the window. A missing file is not an error: the calendar simply renders
// with zero events.
func Load(path string, win caldate.Window) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Info("event data file not found, rendering without events")
			return nil, nil
		}
		return nil, fmt.Errorf("event: open %s: %w", path, err)
	}
	defer f.Close()

	events, err := Parse(f, win)
	if err != nil {
		return nil, fmt.Errorf("event: parse %s: %w", path, err)
	}
	return events, nil
}

// Parse decodes a JSON array of records and normalizes it against the
// window. A record with a missing or unparseable start or end is skipped
// with a warning; one bad record never fails the batch.
func Parse(r io.Reader, win caldate.Window) ([]Event, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}

	raws := make([]raw, 0, len(records))
	for i, rec := range records {
		start, err := parseStamp(rec.Start)
		if err != nil {
			log.WithFields(log.Fields{"index": i, "start": rec.Start}).
				WithError(err).Warn("skipping record with bad start")
			continue
		}
		end, err := parseStamp(rec.End)
		if err != nil {
			log.WithFields(log.Fields{"index": i, "end": rec.End}).
				WithError(err).Warn("skipping record with bad end")
			continue
		}
		raws = append(raws, raw{
			name:  rec.Name,
			title: rec.Title,
			start: start,
			end:   end,
		})
	}

	return normalize(raws, win), nil
}

// stampLayouts are tried in order for timestamps without an explicit zone.
// Go accepts fractional seconds in the input even when the layout carries
// none, so "2025-08-11T15:00:00.000" matches the first entry.
var stampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseStamp accepts the ISO-8601 variants the upstream exporter emits: a
// trailing "Z", an explicit numeric offset, fractional seconds, or a bare
// date-time/date with no zone (treated as UTC).
func parseStamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
