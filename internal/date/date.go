// Package date provides Date, a calendar date with day granularity.
//
// A Date carries no time-of-day and no location. Two dates are equal when
// their year, month and day are equal, so Date values can be compared with
// == and used as map keys.
package date

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned when a year/month/day triple does not name a
// real Gregorian calendar day.
var ErrInvalidDate = errors.New("invalid calendar date")

// Layout is the textual form used by String, Parse and the text marshalers.
const Layout = time.DateOnly

// Date is an immutable (year, month, day) value. The zero value is not a
// valid date; use IsZero to detect it.
type Date struct {
	year  int
	month time.Month
	day   int
}

// New returns the date for y-m-d, or ErrInvalidDate when the day does not
// exist in that month.
func New(y int, m time.Month, d int) (Date, error) {
	if m < time.January || m > time.December {
		return Date{}, fmt.Errorf("%w: month %d", ErrInvalidDate, int(m))
	}
	if d < 1 || d > DaysIn(y, m) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, y, int(m), d)
	}
	return Date{year: y, month: m, day: d}, nil
}

// MustNew is like New but panics on an invalid date. Intended for constants
// and tests.
func MustNew(y int, m time.Month, d int) Date {
	dt, err := New(y, m, d)
	if err != nil {
		panic(err)
	}
	return dt
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// DaysIn reports the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Year() int             { return d.year }
func (d Date) Month() time.Month     { return d.month }
func (d Date) Day() int              { return d.day }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth reports the length of d's month.
func (d Date) DaysInMonth() int {
	return DaysIn(d.year, d.month)
}

// LastDayOfMonth returns the last date of d's month.
func (d Date) LastDayOfMonth() Date {
	return Date{year: d.year, month: d.month, day: d.DaysInMonth()}
}

// AddDays returns d shifted by n days. n may be negative.
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC))
}

// AddMonths returns d shifted by n months, normalising overflowing days the
// way time.Time.AddDate does (Jan 31 + 1 month = Mar 2 or Mar 3).
func (d Date) AddMonths(n int) Date {
	return FromTime(time.Date(d.year, d.month+time.Month(n), d.day, 0, 0, 0, 0, time.UTC))
}

// AddYears returns d shifted by n years with time.Time.AddDate
// normalisation, so Feb 29 + 1 year is Mar 1.
func (d Date) AddYears(n int) Date {
	return FromTime(time.Date(d.year+n, d.month, d.day, 0, 0, 0, 0, time.UTC))
}

// DaysSince returns the signed number of days from other to d (d - other).
func (d Date) DaysSince(other Date) int {
	return int(d.ordinal() - other.ordinal())
}

// MonthsSince returns the signed number of calendar months from other's
// month to d's month, ignoring days.
func (d Date) MonthsSince(other Date) int {
	return int(d.month-other.month) + 12*(d.year-other.year)
}

// Compare returns -1, 0 or +1 when d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmpInt(d.year, other.year)
	case d.month != other.month:
		return cmpInt(int(d.month), int(other.month))
	default:
		return cmpInt(d.day, other.day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// Min returns the earlier of a and b.
func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// MarshalText encodes d as YYYY-MM-DD; the zero date encodes as empty text.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes YYYY-MM-DD. Empty text decodes to the zero date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ordinal is the number of days since 1970-01-01 in the proleptic Gregorian
// calendar.
func (d Date) ordinal() int64 {
	y := int64(d.year)
	m := int64(d.month)
	if m <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	mp := (m + 9) % 12 // March = 0
	doy := (153*mp+2)/5 + int64(d.day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
