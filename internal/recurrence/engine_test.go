package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurcal/internal/date"
)

func d(y int, m time.Month, day int) date.Date {
	return date.MustNew(y, m, day)
}

func TestIsOccurrence(t *testing.T) {
	start := d(2024, 1, 1) // Monday

	tests := []struct {
		name     string
		rule     Rule
		date     date.Date
		expected bool
	}{
		{name: "once on start", rule: Once(start), date: start, expected: true},
		{name: "once next day", rule: Once(start), date: d(2024, 1, 2), expected: false},
		{name: "once a year later", rule: Once(start), date: d(2025, 1, 1), expected: false},

		{name: "daily start", rule: Rule{Start: start, Type: Daily, Interval: 3}, date: start, expected: true},
		{name: "daily multiple", rule: Rule{Start: start, Type: Daily, Interval: 3}, date: d(2024, 1, 7), expected: true},
		{name: "daily off day", rule: Rule{Start: start, Type: Daily, Interval: 3}, date: d(2024, 1, 8), expected: false},
		{name: "daily before start", rule: Rule{Start: start, Type: Daily, Interval: 1}, date: d(2023, 12, 31), expected: false},

		{name: "weekly selected day in on-week", rule: Rule{Start: start, Type: Weekly, Interval: 2, Weekdays: Weekdays(time.Monday, time.Wednesday)}, date: d(2024, 1, 3), expected: true},
		{name: "weekly selected day in off-week", rule: Rule{Start: start, Type: Weekly, Interval: 2, Weekdays: Weekdays(time.Monday, time.Wednesday)}, date: d(2024, 1, 10), expected: false},
		{name: "weekly unselected day", rule: Rule{Start: start, Type: Weekly, Interval: 1, Weekdays: Weekdays(time.Monday)}, date: d(2024, 1, 2), expected: false},
		{name: "weekly start not selected", rule: Rule{Start: start, Type: Weekly, Interval: 1, Weekdays: Weekdays(time.Friday)}, date: start, expected: false},
		{name: "weekly empty set", rule: Rule{Start: start, Type: Weekly, Interval: 1}, date: d(2024, 1, 8), expected: false},

		{name: "monthly nth day", rule: Rule{Start: start, Type: Monthly, Interval: 1, NthDay: 2}, date: d(2024, 3, 2), expected: true},
		{name: "monthly off interval", rule: Rule{Start: start, Type: Monthly, Interval: 2, NthDay: 2}, date: d(2024, 2, 2), expected: false},
		{name: "monthly clamp", rule: Rule{Start: start, Type: Monthly, Interval: 1, NthDay: 31}, date: d(2024, 4, 30), expected: true},
		{name: "monthly last day", rule: Rule{Start: start, Type: Monthly, Interval: 1, NthDay: LastDay}, date: d(2023, 2, 28), expected: false},
		{name: "monthly nth day in start month before start", rule: Rule{Start: d(2024, 1, 15), Type: Monthly, Interval: 1, NthDay: 1}, date: d(2024, 1, 1), expected: false},

		{name: "yearly anniversary", rule: Rule{Start: start, Type: Yearly, Interval: 2}, date: d(2026, 1, 1), expected: true},
		{name: "yearly off interval", rule: Rule{Start: start, Type: Yearly, Interval: 2}, date: d(2025, 1, 1), expected: false},
		{name: "yearly wrong day", rule: Rule{Start: start, Type: Yearly, Interval: 1}, date: d(2025, 1, 2), expected: false},

		{name: "after end", rule: Rule{Start: start, Type: Daily, Interval: 1}.WithEnd(d(2024, 1, 10)), date: d(2024, 1, 11), expected: false},
		{name: "on end", rule: Rule{Start: start, Type: Daily, Interval: 1}.WithEnd(d(2024, 1, 10)), date: d(2024, 1, 10), expected: true},
		{name: "beyond default horizon", rule: Rule{Start: start, Type: Daily, Interval: 1}, date: d(2030, 1, 1), expected: true},

		{name: "selectors ignored for daily", rule: Rule{Start: start, Type: Daily, Interval: 1, Weekdays: Weekdays(time.Friday), NthDay: 0}, date: d(2024, 1, 2), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsOccurrence(tt.rule, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidation(t *testing.T) {
	start := d(2024, 1, 1)

	tests := []struct {
		name string
		rule Rule
		err  error
	}{
		{name: "zero interval", rule: Rule{Start: start, Type: Daily}, err: ErrInvalidInterval},
		{name: "negative interval", rule: Rule{Start: start, Type: Weekly, Interval: -2}, err: ErrInvalidInterval},
		{name: "zero interval on once", rule: Rule{Start: start, Type: None}, err: ErrInvalidInterval},
		{name: "unknown type", rule: Rule{Start: start, Type: Type(42), Interval: 1}, err: ErrUnknownType},
		{name: "monthly nth zero", rule: Rule{Start: start, Type: Monthly, Interval: 1}, err: ErrInvalidNthDay},
		{name: "monthly nth -2", rule: Rule{Start: start, Type: Monthly, Interval: 1, NthDay: -2}, err: ErrInvalidNthDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IsOccurrence(tt.rule, start)
			require.ErrorIs(t, err, tt.err)

			dates, err := Enumerate(tt.rule, mo.None[date.Date]())
			require.ErrorIs(t, err, tt.err)
			assert.Nil(t, dates)

			_, err = Between(tt.rule, start, start)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNoneMatchesOnlyStart(t *testing.T) {
	start := d(2024, 6, 15)
	rule := Once(start)

	for day := start.AddDays(-400); !day.After(start.AddDays(400)); day = day.AddDays(1) {
		got, err := IsOccurrence(rule, day)
		require.NoError(t, err)
		assert.Equal(t, day == start, got, day.String())
	}

	dates, err := Enumerate(rule, mo.None[date.Date]())
	require.NoError(t, err)
	assert.Equal(t, []date.Date{start}, dates)
}

func TestEnumerateDailyCount(t *testing.T) {
	start := d(2024, 2, 20)
	for _, n := range []int{0, 1, 9, 40, 365} {
		rule := Rule{Start: start, Type: Daily, Interval: 1}.WithEnd(start.AddDays(n))
		dates, err := Enumerate(rule, mo.None[date.Date]())
		require.NoError(t, err)
		require.Len(t, dates, n+1)
		for i, got := range dates {
			assert.Equal(t, start.AddDays(i), got)
		}
	}
}

func TestEnumerateWeeklyIntervalGating(t *testing.T) {
	rule := Rule{Start: d(2024, 1, 1), Type: Weekly, Interval: 2, Weekdays: Weekdays(time.Monday)}

	dates, err := Enumerate(rule, mo.Some(d(2024, 2, 1)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 1, 1), d(2024, 1, 15), d(2024, 1, 29)}, dates)

	dates, err = Enumerate(rule, mo.Some(d(2024, 1, 20)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 1, 1), d(2024, 1, 15)}, dates)
}

func TestEnumerateWeeklyMultipleDays(t *testing.T) {
	rule := Rule{Start: d(2024, 1, 1), Type: Weekly, Interval: 2, Weekdays: Weekdays(time.Monday, time.Wednesday)}

	dates, err := Enumerate(rule, mo.Some(d(2024, 1, 31)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{
		d(2024, 1, 1), d(2024, 1, 3),
		d(2024, 1, 15), d(2024, 1, 17),
		d(2024, 1, 29), d(2024, 1, 31),
	}, dates)
}

func TestEnumerateMonthlyClamp(t *testing.T) {
	rule := Rule{Start: d(2024, 1, 31), Type: Monthly, Interval: 1, NthDay: 31}

	dates, err := Enumerate(rule, mo.Some(d(2024, 4, 30)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 1, 31), d(2024, 2, 29), d(2024, 3, 31), d(2024, 4, 30)}, dates)
}

func TestEnumerateMonthlyLastDay(t *testing.T) {
	rule := Rule{Start: d(2024, 1, 31), Type: Monthly, Interval: 1, NthDay: LastDay}

	dates, err := Enumerate(rule, mo.Some(d(2024, 4, 30)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 1, 31), d(2024, 2, 29), d(2024, 3, 31), d(2024, 4, 30)}, dates)

	rule.Start = d(2023, 1, 15)
	rule.Interval = 3
	dates, err = Enumerate(rule, mo.None[date.Date]())
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2023, 1, 31), d(2023, 4, 30), d(2023, 7, 31), d(2023, 10, 31)}, dates)
}

func TestEnumerateYearlyLeapDay(t *testing.T) {
	rule := Rule{Start: d(2024, 2, 29), Type: Yearly, Interval: 1}.WithEnd(d(2030, 12, 31))

	dates, err := Enumerate(rule.WithEnd(d(2024, 2, 28)), mo.None[date.Date]())
	require.NoError(t, err)
	assert.Empty(t, dates)

	// Anchor excluded: the range starts the day after the anchor.
	dates, err = Between(rule, d(2024, 3, 1), d(2027, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, dates)

	dates, err = Between(rule, d(2024, 3, 1), d(2028, 12, 31))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2028, 2, 29)}, dates)

	dates, err = Enumerate(rule, mo.Some(d(2028, 12, 31)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 2, 29), d(2028, 2, 29)}, dates)
}

func TestEmptyRange(t *testing.T) {
	start := d(2024, 5, 10)
	end := d(2024, 5, 1)

	for _, typ := range []Type{None, Daily, Weekly, Monthly, Yearly} {
		rule := Rule{Start: start, Type: typ, Interval: 1, Weekdays: AllWeekdays, NthDay: LastDay}.WithEnd(end)

		dates, err := Enumerate(rule, mo.None[date.Date]())
		require.NoError(t, err)
		assert.Empty(t, dates, typ.String())

		for day := end.AddDays(-5); !day.After(start.AddDays(40)); day = day.AddDays(1) {
			got, err := IsOccurrence(rule, day)
			require.NoError(t, err)
			assert.False(t, got, "%s %s", typ, day)
		}
	}

	// A horizon before start empties the range too.
	rule := Rule{Start: start, Type: Daily, Interval: 1}
	dates, err := Enumerate(rule, mo.Some(start.AddDays(-1)))
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestEnumerateDefaultHorizon(t *testing.T) {
	rule := Rule{Start: d(2024, 3, 1), Type: Daily, Interval: 1}

	dates, err := Enumerate(rule, mo.None[date.Date]())
	require.NoError(t, err)
	require.Len(t, dates, 366)
	assert.Equal(t, d(2025, 3, 1), dates[len(dates)-1])

	// An explicit end beyond the default horizon wins over it.
	dates, err = Enumerate(rule.WithEnd(d(2026, 3, 1)), mo.None[date.Date]())
	require.NoError(t, err)
	assert.Equal(t, d(2026, 3, 1), dates[len(dates)-1])

	// The horizon clamps an explicit end.
	dates, err = Enumerate(rule.WithEnd(d(2026, 3, 1)), mo.Some(d(2024, 3, 3)))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 3, 1), d(2024, 3, 2), d(2024, 3, 3)}, dates)
}

func TestEnumerateMatchesPredicate(t *testing.T) {
	rules := []Rule{
		{Start: d(2024, 1, 3), Type: Daily, Interval: 4},
		{Start: d(2024, 1, 3), Type: Weekly, Interval: 3, Weekdays: Weekdays(time.Sunday, time.Wednesday, time.Saturday)},
		{Start: d(2024, 1, 3), Type: Monthly, Interval: 2, NthDay: 30},
		{Start: d(2024, 1, 3), Type: Yearly, Interval: 1},
	}

	for _, rule := range rules {
		t.Run(rule.Type.String(), func(t *testing.T) {
			dates, err := Enumerate(rule, mo.None[date.Date]())
			require.NoError(t, err)

			want := make([]date.Date, 0)
			for day := rule.Start; !day.After(rule.DefaultHorizon()); day = day.AddDays(1) {
				ok, err := IsOccurrence(rule, day)
				require.NoError(t, err)
				if ok {
					want = append(want, day)
				}
			}
			assert.Equal(t, want, dates)

			again, err := Enumerate(rule, mo.None[date.Date]())
			require.NoError(t, err)
			assert.Equal(t, dates, again)
		})
	}
}

func TestBetween(t *testing.T) {
	rule := Rule{Start: d(2024, 1, 10), Type: Daily, Interval: 5}.WithEnd(d(2024, 2, 10))

	dates, err := Between(rule, d(2024, 1, 1), d(2024, 1, 25))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 1, 10), d(2024, 1, 15), d(2024, 1, 20), d(2024, 1, 25)}, dates)

	dates, err = Between(rule, d(2024, 2, 1), d(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, []date.Date{d(2024, 2, 4), d(2024, 2, 9)}, dates)

	dates, err = Between(rule, d(2024, 1, 20), d(2024, 1, 19))
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"none", "once", "", "Daily", " weekly ", "MONTHLY", "yearly"} {
		_, err := ParseType(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseType("hourly")
	assert.ErrorIs(t, err, ErrUnknownType)

	typ, err := ParseType("once")
	require.NoError(t, err)
	assert.Equal(t, None, typ)

	out, err := Weekly.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "weekly", string(out))
	_, err = Type(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestWeekdaySet(t *testing.T) {
	s := Weekdays(time.Monday, time.Wednesday)
	assert.True(t, s.Has(time.Monday))
	assert.False(t, s.Has(time.Tuesday))
	assert.Equal(t, "Mon,Wed", s.String())

	s = s.Toggle(time.Monday).Toggle(time.Sunday)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Wednesday}, s.Days())
	assert.Len(t, AllWeekdays.Days(), 7)
	assert.False(t, s.Has(time.Weekday(9)))

	day, err := ParseWeekday("thu")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, day)
	day, err = ParseWeekday("Saturday")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, day)
	_, err = ParseWeekday("th")
	assert.Error(t, err)
}
