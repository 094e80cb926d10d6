package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/samber/mo"
	"go.uber.org/multierr"

	"recurcal/internal/date"
	"recurcal/internal/ics"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// verifyICS checks an exported calendar against the configured rules: every
// VEVENT must belong to a rule and expand to exactly the rule's
// occurrences. One line per event is written to w.
func verifyICS(w io.Writer, body []byte, events []model.Event) error {
	parsed, err := ics.ParseICS(body)
	if err != nil {
		return err
	}

	byUID := make(map[string]model.Event, len(events))
	for _, ev := range events {
		byUID[ics.EventUID(ev.ID)] = ev
	}

	var errs error
	for _, pe := range parsed {
		ev, ok := byUID[pe.UID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: no configured rule", pe.UID))
			continue
		}
		if err := verifyEvent(pe, ev); err != nil {
			errs = multierr.Append(errs, err)
			fmt.Fprintf(w, "FAIL %s: %v\n", ev.ID, err)
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", ev.ID)
	}
	return errs
}

func verifyEvent(pe ics.ParsedEvent, ev model.Event) error {
	want, err := recurrence.Enumerate(ev.Rule, mo.None[date.Date]())
	if err != nil {
		return fmt.Errorf("%s: %w", ev.ID, err)
	}

	res, err := ics.ExpandDates([]ics.ParsedEvent{pe}, ics.ExpandConfig{
		From:                   ev.Rule.Start,
		To:                     recurrence.Bound(ev.Rule, mo.None[date.Date]()),
		MaxOccurrencesPerEvent: len(want) + 1,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ev.ID, err)
	}

	got := res.Dates[pe.UID]
	if !slices.Equal(got, want) {
		return fmt.Errorf("%s: calendar has %d dates, rule has %d", ev.ID, len(got), len(want))
	}
	return nil
}
