package event

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
)

// FromICS parses an ICS payload into normalized events. sourceName becomes
// the owner name of every event from this feed (a feed is typically one
// person's vacation calendar).
//
// Mapping rules:
//   - SUMMARY -> Title
//   - DTSTART / DTEND collapse to UTC calendar dates; the DTEND of an
//     all-day VEVENT is exclusive per RFC 5545 and shifts back one day
//   - VEVENTs carrying an RRULE are skipped: recurrence is out of scope
//
// A malformed VEVENT is logged and skipped, never fatal to the feed.
func FromICS(sourceName string, body []byte, win caldate.Window) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("event: empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	raws := make([]raw, 0)
	for _, ve := range cal.Events() {
		r, ok := parseVEvent(sourceName, ve)
		if !ok {
			continue
		}
		raws = append(raws, r)
	}

	log.WithFields(log.Fields{"source": sourceName, "events": len(raws)}).
		Debug("ics feed parsed")
	return normalize(raws, win), nil
}

func parseVEvent(sourceName string, ve *ical.VEvent) (raw, bool) {
	logger := log.WithField("source", sourceName)

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		logger = logger.WithField("uid", p.Value)
	}

	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		logger.Warn("skipping recurring VEVENT, recurrence is not supported")
		return raw{}, false
	}

	allDay := isAllDay(ve)

	var start, end time.Time
	var err error
	if allDay {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		logger.WithError(err).Warn("skipping VEVENT with bad DTSTART")
		return raw{}, false
	}
	if allDay {
		end, err = ve.GetAllDayEndAt()
	} else {
		end, err = ve.GetEndAt()
	}
	if err != nil {
		// DTEND is optional; fall back to a single-day event.
		end = start
	}

	var title string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		title = p.Value
	}

	if allDay {
		// All-day values are dates in the event's own zone; pin them to
		// UTC midnight by calendar date so the later UTC collapse cannot
		// shift them a day. DTEND is exclusive per RFC 5545.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		if end.After(start) {
			end = end.AddDate(0, 0, -1)
		}
	}

	return raw{name: sourceName, title: title, start: start, end: end}, true
}

// isAllDay reports whether the VEVENT's DTSTART is a date (VALUE=DATE or no
// time component), which marks the whole event as all-day.
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}
