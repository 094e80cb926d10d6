package ics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/teambition/rrule-go"

	"recurcal/internal/date"
	appLog "recurcal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how parsed events are expanded.
type ExpandConfig struct {
	// From and To bound the expansion, both inclusive.
	From date.Date
	To   date.Date

	// MaxOccurrencesPerEvent caps the dates produced for one UID. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult maps each UID to its sorted, de-duplicated dates.
type ExpandResult struct {
	Dates map[string][]date.Date
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandDates expands parsed events into concrete dates within
// [cfg.From, cfg.To]. DTSTART, RRULE and RDATE contribute dates; EXDATE
// removes them. Events sharing a UID are merged.
func ExpandDates(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	result := ExpandResult{Dates: make(map[string][]date.Date)}

	if cfg.To.Before(cfg.From) {
		return result, errors.New("expand: To is before From")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	for _, ev := range events {
		dates, err := expandEvent(ev, cfg)
		if err != nil {
			return result, err
		}
		result.Dates[ev.UID] = merge(result.Dates[ev.UID], dates)
	}

	uids := make([]string, 0, len(result.Dates))
	for uid := range result.Dates {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	for _, uid := range uids {
		if len(result.Dates[uid]) <= cfg.MaxOccurrencesPerEvent {
			continue
		}
		result.Dates[uid] = result.Dates[uid][:cfg.MaxOccurrencesPerEvent]
		result.TruncatedEvents = append(result.TruncatedEvents, uid)
		appLog.Error("expand: truncated occurrences for UID due to cap",
			errors.New("max occurrences reached"),
			"uid", uid,
			"cap", cfg.MaxOccurrencesPerEvent,
		)
	}
	return result, nil
}

func expandEvent(ev ParsedEvent, cfg ExpandConfig) ([]date.Date, error) {
	var set rrule.Set
	set.DTStart(ev.Start.Time())
	set.RDate(ev.Start.Time())

	if ev.RawRRule != "" {
		r, err := rrule.StrToRRule(ev.RawRRule)
		if err != nil {
			return nil, fmt.Errorf("expand %s: RRULE %q: %w", ev.UID, ev.RawRRule, err)
		}
		r.DTStart(ev.Start.Time())
		set.RRule(r)
	}
	for _, d := range ev.RDates {
		set.RDate(d.Time())
	}
	for _, d := range ev.ExDates {
		set.ExDate(d.Time())
	}

	// One past the cap is enough for ExpandDates to notice truncation.
	limit := cfg.MaxOccurrencesPerEvent + 1
	from, to := cfg.From.Time(), cfg.To.Time()

	out := make([]date.Date, 0)
	next := set.Iterator()
	for len(out) < limit {
		t, ok := next()
		if !ok || t.After(to) {
			break
		}
		if t.Before(from) {
			continue
		}
		d := date.FromTime(t)
		if n := len(out); n > 0 && out[n-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// merge combines two sorted date lists, dropping duplicates.
func merge(a, b []date.Date) []date.Date {
	if len(a) == 0 {
		return b
	}
	out := make([]date.Date, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var next date.Date
		switch {
		case j >= len(b) || (i < len(a) && a[i].Before(b[j])):
			next = a[i]
			i++
		case i >= len(a) || b[j].Before(a[i]):
			next = b[j]
			j++
		default:
			next = a[i]
			i++
			j++
		}
		if n := len(out); n == 0 || out[n-1] != next {
			out = append(out, next)
		}
	}
	return out
}
