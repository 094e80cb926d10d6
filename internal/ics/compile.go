package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"recurcal/internal/date"
	"recurcal/internal/recurrence"
)

// ErrNotExpressible is returned by CompileRRule when no RRULE reproduces
// the rule's occurrences exactly over the bounded range.
var ErrNotExpressible = errors.New("ics: rule has no exact RRULE form")

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// CompileRRule translates r into an RFC 5545 recurrence rule bounded by
// UNTIL = recurrence.Bound(r, horizon).
//
// The mapping:
//   - Daily:   FREQ=DAILY;INTERVAL=n
//   - Weekly:  FREQ=WEEKLY;INTERVAL=n;BYDAY=...;WKST=<weekday of start>
//   - Monthly: BYMONTHDAY=n, BYMONTHDAY=-1, or BYMONTHDAY=28..n;BYSETPOS=-1
//     for days that must clamp to short months
//   - Yearly:  FREQ=YEARLY;INTERVAL=n;BYMONTH=m;BYMONTHDAY=d
//
// DTSTART is the first occurrence, which always falls in an on-period, so
// period counting agrees with counting from r.Start. WKST is the start's
// weekday so RFC weeks line up with whole weeks elapsed since start. The
// result is expanded and compared with recurrence.Enumerate; any
// difference or an empty range yields ErrNotExpressible.
func CompileRRule(r recurrence.Rule, horizon mo.Option[date.Date]) (*rrule.RRule, error) {
	want, err := recurrence.Enumerate(r, horizon)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 {
		return nil, ErrNotExpressible
	}

	until := recurrence.Bound(r, horizon)
	opt := rrule.ROption{
		Dtstart:  want[0].Time(),
		Interval: r.Interval,
		Until:    until.Time(),
	}

	switch r.Type {
	case recurrence.None:
		return nil, ErrNotExpressible
	case recurrence.Daily:
		opt.Freq = rrule.DAILY
	case recurrence.Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rruleWeekdays[r.Start.Weekday()]
		for _, wd := range r.Weekdays.Days() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case recurrence.Monthly:
		opt.Freq = rrule.MONTHLY
		switch {
		case r.NthDay == recurrence.LastDay || r.NthDay >= 31:
			opt.Bymonthday = []int{-1}
		case r.NthDay <= 28:
			opt.Bymonthday = []int{r.NthDay}
		default:
			// Last of 28..n present in the month, i.e. min(n, length).
			for day := 28; day <= r.NthDay; day++ {
				opt.Bymonthday = append(opt.Bymonthday, day)
			}
			opt.Bysetpos = []int{-1}
		}
	case recurrence.Yearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(r.Start.Month())}
		opt.Bymonthday = []int{r.Start.Day()}
	default:
		return nil, fmt.Errorf("%w: %d", recurrence.ErrUnknownType, int(r.Type))
	}

	compiled, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("ics: build rrule: %w", err)
	}

	got := toDates(compiled.Between(want[0].Time(), until.Time(), true))
	if !sameDates(got, want) {
		return nil, ErrNotExpressible
	}
	return compiled, nil
}

// RRuleValue is the RRULE property value of a compiled rule, without the
// DTSTART line. UNTIL is written as a DATE to match a VALUE=DATE DTSTART.
func RRuleValue(r *rrule.RRule) string {
	opt := r.OrigOptions
	until := opt.Until
	opt.Until = time.Time{}
	value := opt.RRuleString()
	if !until.IsZero() {
		value += ";UNTIL=" + until.Format(icsDateLayout)
	}
	return value
}

func toDates(times []time.Time) []date.Date {
	out := make([]date.Date, 0, len(times))
	for _, t := range times {
		d := date.FromTime(t)
		if n := len(out); n > 0 && out[n-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}

func sameDates(a, b []date.Date) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
