// Package recurrence evaluates recurrence rules over calendar dates.
//
// A Rule is a value: an anchor date, an optional inclusive end, a Type
// (None, Daily, Weekly, Monthly or Yearly), an interval, and the
// type-specific selectors Weekdays and NthDay. The package answers two
// questions about a rule:
//
//   - IsOccurrence: is a given date an occurrence?
//   - Enumerate / Between: which dates in a bounded range are occurrences?
//
// Every function is pure and safe for concurrent use. Invalid rules are
// reported with ErrInvalidInterval, ErrUnknownType or ErrInvalidNthDay; an
// empty range is not an error and yields no occurrences.
package recurrence
