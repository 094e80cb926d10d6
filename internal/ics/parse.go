package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"recurcal/internal/date"
	appLog "recurcal/internal/log"
)

// ParsedEvent is the date-level view of a VEVENT. Times of day are
// dropped; DATE-TIME values contribute only their calendar date.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string

	Start    date.Date
	RawRRule string
	RDates   []date.Date
	ExDates  []date.Date
}

// ParseICS parses an ICS payload into its events. A VEVENT that cannot be
// read (missing UID or DTSTART) is logged and skipped.
func ParseICS(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("%s: missing DTSTART", out.UID)
	}
	start, err := parseICSDate(startProp.Value)
	if err != nil {
		return out, fmt.Errorf("%s: DTSTART: %w", out.UID, err)
	}
	out.Start = start

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	out.RDates, err = dateList(ve.GetProperties(ical.ComponentPropertyRdate))
	if err != nil {
		return out, fmt.Errorf("%s: RDATE: %w", out.UID, err)
	}
	out.ExDates, err = dateList(ve.GetProperties(ical.ComponentPropertyExdate))
	if err != nil {
		return out, fmt.Errorf("%s: EXDATE: %w", out.UID, err)
	}
	return out, nil
}

// dateList flattens repeated and comma-separated date properties.
func dateList(props []*ical.IANAProperty) ([]date.Date, error) {
	var out []date.Date
	for _, p := range props {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := parseICSDate(part)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// parseICSDate accepts DATE (20240131) and DATE-TIME (20240131T090000,
// optionally with a trailing Z) values and keeps the date part as written.
func parseICSDate(v string) (date.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return date.Date{}, errors.New("empty date value")
	}
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		v = v[:i]
	}
	t, err := time.Parse(icsDateLayout, v)
	if err != nil {
		return date.Date{}, fmt.Errorf("%w: %q", date.ErrInvalidDate, v)
	}
	return date.FromTime(t), nil
}
