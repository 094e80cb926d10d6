package recurrence

import (
	"recurcal/internal/date"
)

// IsOccurrence reports whether d is an occurrence of r.
//
// Dates before r.Start are never occurrences, and neither are dates after
// r.End when an end is set. The default one-year horizon only bounds
// enumeration; it does not affect this predicate.
func IsOccurrence(r Rule, d date.Date) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	return matches(r, d), nil
}

// matches evaluates an already validated rule.
func matches(r Rule, d date.Date) bool {
	elapsed := d.DaysSince(r.Start)
	if elapsed < 0 {
		return false
	}
	if end, ok := r.End.Get(); ok && d.After(end) {
		return false
	}

	switch r.Type {
	case None:
		return d == r.Start
	case Daily:
		return elapsed%r.Interval == 0
	case Weekly:
		// Whole weeks since start, so every selected weekday of an on-week
		// matches.
		return (elapsed/7)%r.Interval == 0 && r.Weekdays.Has(d.Weekday())
	case Monthly:
		months := d.MonthsSince(r.Start)
		return months >= 0 && months%r.Interval == 0 && d.Day() == targetDay(d, r.NthDay)
	case Yearly:
		years := d.Year() - r.Start.Year()
		return d.Month() == r.Start.Month() && d.Day() == r.Start.Day() &&
			years >= 0 && years%r.Interval == 0
	default:
		return false
	}
}

// targetDay is the day of d's month selected by nth: the nth day clamped to
// the month length, or the last day for LastDay.
func targetDay(d date.Date, nth int) int {
	last := d.DaysInMonth()
	if nth == LastDay || nth > last {
		return last
	}
	return nth
}
