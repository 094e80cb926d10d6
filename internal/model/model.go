package model

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/samber/mo"

	"recurcal/internal/date"
	"recurcal/internal/recurrence"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Event is a named recurrence rule as configured by the user. The ID is
// used in URLs and export file names, so it is restricted to a safe
// character set.
type Event struct {
	ID          string
	Summary     string
	Description string

	Rule recurrence.Rule
}

// Validate checks the ID and the rule.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event id is empty")
	}
	if !validID.MatchString(e.ID) {
		return fmt.Errorf("event id %q may only contain letters, digits, '.', '_' and '-'", e.ID)
	}
	if err := e.Rule.Validate(); err != nil {
		return fmt.Errorf("event %q: %w", e.ID, err)
	}
	return nil
}

// Occurrence is one concrete date of an Event, as exposed to API clients.
type Occurrence struct {
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Date    date.Date `json:"date"`
}

// Occurrences pairs each date with its event.
func (e Event) Occurrences(dates []date.Date) []Occurrence {
	out := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		out = append(out, Occurrence{EventID: e.ID, Summary: e.Summary, Date: d})
	}
	return out
}

// RuleView is a JSON-friendly view of a recurrence rule.
type RuleView struct {
	Start    date.Date            `json:"start"`
	End      mo.Option[date.Date] `json:"end"`
	Type     recurrence.Type      `json:"type"`
	Interval int                  `json:"interval"`
	Weekdays []string             `json:"weekdays,omitempty"`
	NthDay   int                  `json:"nth_day,omitempty"`
}

// ViewOf renders r for JSON responses; selectors the type ignores are left
// out.
func ViewOf(r recurrence.Rule) RuleView {
	v := RuleView{
		Start:    r.Start,
		End:      r.End,
		Type:     r.Type,
		Interval: r.Interval,
	}
	switch r.Type {
	case recurrence.Weekly:
		v.Weekdays = make([]string, 0, 7)
		for _, d := range r.Weekdays.Days() {
			v.Weekdays = append(v.Weekdays, d.String()[:3])
		}
	case recurrence.Monthly:
		v.NthDay = r.NthDay
	}
	return v
}
