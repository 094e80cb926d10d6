package ics

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"recurcal/internal/date"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

const (
	defaultProductID = "-//recurcal//recurrence export//EN"
	icsDateLayout    = "20060102"
)

// compileRRule is swapped in tests to force the RDATE form.
var compileRRule = CompileRRule

// uidNamespace scopes the name-based UUIDs generated for event UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:recurcal:event"))

// ExportOptions controls calendar generation.
type ExportOptions struct {
	// ProductID is written as PRODID. Empty uses a recurcal default.
	ProductID string
	// Horizon optionally clamps every event's enumeration range.
	Horizon mo.Option[date.Date]
	// Stamp is written as DTSTAMP. Zero uses the current time.
	Stamp time.Time
}

// EventUID returns the stable iCalendar UID for an event id, so repeated
// exports update rather than duplicate entries in subscribed clients.
func EventUID(id string) string {
	return uuid.NewSHA1(uidNamespace, []byte(id)).String() + "@recurcal"
}

// Export renders events as a VCALENDAR. Each event with at least one
// occurrence becomes one all-day VEVENT whose DTSTART is the first
// occurrence; the remaining occurrences are described by an RRULE when
// CompileRRule finds an exact one, and by RDATE values otherwise.
func Export(events []model.Event, opts ExportOptions) ([]byte, error) {
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now().UTC()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)

	for _, ev := range events {
		if err := addEvent(cal, ev, opts); err != nil {
			return nil, err
		}
	}
	return []byte(cal.Serialize()), nil
}

func addEvent(cal *ical.Calendar, ev model.Event, opts ExportOptions) error {
	dates, err := recurrence.Enumerate(ev.Rule, opts.Horizon)
	if err != nil {
		return fmt.Errorf("export %q: %w", ev.ID, err)
	}
	if len(dates) == 0 {
		return nil
	}

	ve := cal.AddEvent(EventUID(ev.ID))
	ve.SetDtStampTime(opts.Stamp)
	ve.SetSummary(ev.Summary)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	ve.SetAllDayStartAt(dates[0].Time())
	ve.SetAllDayEndAt(dates[0].AddDays(1).Time())

	if len(dates) == 1 {
		return nil
	}

	compiled, err := compileRRule(ev.Rule, opts.Horizon)
	switch {
	case err == nil:
		ve.AddProperty(ical.ComponentPropertyRrule, RRuleValue(compiled))
	case errors.Is(err, ErrNotExpressible):
		for _, d := range dates[1:] {
			ve.AddProperty(ical.ComponentPropertyRdate, d.Time().Format(icsDateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
		}
	default:
		return fmt.Errorf("export %q: %w", ev.ID, err)
	}
	return nil
}
