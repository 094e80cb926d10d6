package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"recurcal/internal/date"
)

var (
	// ErrInvalidInterval is returned when a rule's interval is below 1.
	ErrInvalidInterval = errors.New("recurrence: interval must be >= 1")
	// ErrUnknownType is returned for a Type outside the five known variants.
	ErrUnknownType = errors.New("recurrence: unknown recurrence type")
	// ErrInvalidNthDay is returned for a monthly rule whose NthDay is neither
	// positive nor LastDay.
	ErrInvalidNthDay = errors.New("recurrence: nth day must be positive or -1")
	// ErrInvalidWeekday is returned by ParseWeekday.
	ErrInvalidWeekday = errors.New("recurrence: unknown weekday")
)

// Type selects how a Rule repeats.
type Type int

const (
	None Type = iota
	Daily
	Weekly
	Monthly
	Yearly
)

var typeNames = [...]string{
	None:    "none",
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

func (t Type) String() string {
	if t < None || t > Yearly {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType maps a type name to a Type. "once" and the empty string are
// accepted for None.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "once" || name == "" {
		return None, nil
	}
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) MarshalText() ([]byte, error) {
	if t < None || t > Yearly {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LastDay is the NthDay value selecting the last day of the month.
const LastDay = -1

// WeekdaySet is a set of weekdays, one bit per time.Weekday.
type WeekdaySet uint8

// AllWeekdays contains every day of the week.
const AllWeekdays WeekdaySet = 1<<7 - 1

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && s&(1<<d) != 0
}

// With returns s plus d.
func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<d
}

// Without returns s minus d.
func (s WeekdaySet) Without(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s &^ (1 << d)
}

// Toggle flips membership of d, as a weekday button in a form would.
func (s WeekdaySet) Toggle(d time.Weekday) WeekdaySet {
	if s.Has(d) {
		return s.Without(d)
	}
	return s.With(d)
}

// Days lists the members of s from Sunday to Saturday.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// ParseWeekday accepts English day names or their first three letters.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if name == full || name == full[:3] {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// Rule is an immutable recurrence configuration anchored at Start.
//
// Weekdays is only consulted for Weekly rules and NthDay only for Monthly
// rules. A rule whose End precedes Start has no occurrences.
type Rule struct {
	Start    date.Date
	End      mo.Option[date.Date]
	Type     Type
	Interval int
	Weekdays WeekdaySet
	NthDay   int
}

// Once returns a non-repeating rule for start.
func Once(start date.Date) Rule {
	return Rule{Start: start, Type: None, Interval: 1}
}

// Validate reports whether the rule can be evaluated.
func (r Rule) Validate() error {
	switch r.Type {
	case None, Daily, Weekly, Yearly:
	case Monthly:
		if r.NthDay == 0 || r.NthDay < LastDay {
			return fmt.Errorf("%w: got %d", ErrInvalidNthDay, r.NthDay)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, int(r.Type))
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
	}
	return nil
}

// WithEnd returns a copy of r ending on end (inclusive).
func (r Rule) WithEnd(end date.Date) Rule {
	r.End = mo.Some(end)
	return r
}

// DefaultHorizon is the enumeration bound used when a rule has no end:
// one year after start.
func (r Rule) DefaultHorizon() date.Date {
	return r.Start.AddYears(1)
}
