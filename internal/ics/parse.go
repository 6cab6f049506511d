// Package ics moves maintenance windows in and out of iCalendar form.
package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/schedule"
)

// ImportedWindow is a one-time window read from a VEVENT.
type ImportedWindow struct {
	UID         string                    `json:"uid"`
	Summary     string                    `json:"summary"`
	Description string                    `json:"description,omitempty"`
	Occurrence  schedule.SingleOccurrence `json:"-"`
}

// ParseWindows reads the one-time events of an ICS payload.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling, so
//     start and end are absolute instants.
//   - A missing DTEND makes the window open-ended.
//   - Recurring events and overrides are skipped; only explicit windows
//     are imported.
func ParseWindows(body []byte) ([]ImportedWindow, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	windows := make([]ImportedWindow, 0)
	for _, ev := range cal.Events() {
		w, skip, perr := parseVEvent(ev)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		if skip {
			continue
		}
		windows = append(windows, w)
	}

	appLog.Info("ics parse completed", "window_count", len(windows))
	return windows, nil
}

func parseVEvent(ve *ical.VEvent) (ImportedWindow, bool, error) {
	var out ImportedWindow

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, false, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if ve.GetProperty(ical.ComponentPropertyRrule) != nil || ve.GetProperty("RECURRENCE-ID") != nil {
		appLog.Debug("ics: skipping recurring event", "uid", out.UID)
		return out, true, nil
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, false, err
	}
	var end int64
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		t, err := ve.GetEndAt()
		if err != nil {
			return out, false, err
		}
		if t.Before(start) {
			return out, false, errors.New("DTEND before DTSTART")
		}
		end = t.Unix()
	}
	out.Occurrence = schedule.NewSingleOccurrence(start.Unix(), end, end == 0)
	return out, false, nil
}
