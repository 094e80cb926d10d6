// Package grid lays out one month of a recurrence rule as calendar cells.
package grid

import (
	"errors"
	"fmt"
	"time"

	"recurcal/internal/date"
	"recurcal/internal/recurrence"
)

// ErrInvalidMonth is returned for a month outside January..December.
var ErrInvalidMonth = errors.New("grid: month must be 1..12")

// ErrInvalidWeekStart is returned for a first column outside Sunday..Saturday.
var ErrInvalidWeekStart = errors.New("grid: week start must be Sunday..Saturday")

// Cell is one day of the displayed month.
type Cell struct {
	Day        int  `json:"day"`
	Occurrence bool `json:"occurrence"`
}

// Grid is a month ready to render: LeadingBlanks empty cells followed by
// one Cell per day of the month.
type Grid struct {
	Year          int          `json:"year"`
	Month         time.Month   `json:"month"`
	WeekStart     time.Weekday `json:"week_start"`
	LeadingBlanks int          `json:"leading_blanks"`
	Cells         []Cell       `json:"cells"`
}

// BuildMonthGrid lays out year/month for r with Sunday as the first column.
func BuildMonthGrid(r recurrence.Rule, year int, month time.Month) (Grid, error) {
	return BuildMonthGridFrom(r, YearMonth{Year: year, Month: month}, time.Sunday)
}

// BuildMonthGridFrom lays out ym for r with weekStart as the first column.
func BuildMonthGridFrom(r recurrence.Rule, ym YearMonth, weekStart time.Weekday) (Grid, error) {
	if err := ym.validate(); err != nil {
		return Grid{}, err
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Grid{}, fmt.Errorf("%w: got %d", ErrInvalidWeekStart, int(weekStart))
	}
	if err := r.Validate(); err != nil {
		return Grid{}, err
	}

	first := ym.First()
	days := first.DaysInMonth()

	g := Grid{
		Year:          ym.Year,
		Month:         ym.Month,
		WeekStart:     weekStart,
		LeadingBlanks: (int(first.Weekday()) - int(weekStart) + 7) % 7,
		Cells:         make([]Cell, 0, days),
	}
	for day := first; day.Month() == ym.Month; day = day.AddDays(1) {
		ok, err := recurrence.IsOccurrence(r, day)
		if err != nil {
			return Grid{}, err
		}
		g.Cells = append(g.Cells, Cell{Day: day.Day(), Occurrence: ok})
	}
	return g, nil
}

// Weeks splits the grid into rows of seven. Blank positions are nil.
func (g Grid) Weeks() [][]*Cell {
	slots := make([]*Cell, g.LeadingBlanks, g.LeadingBlanks+len(g.Cells)+6)
	for i := range g.Cells {
		slots = append(slots, &g.Cells[i])
	}
	for len(slots)%7 != 0 {
		slots = append(slots, nil)
	}

	weeks := make([][]*Cell, 0, len(slots)/7)
	for i := 0; i < len(slots); i += 7 {
		weeks = append(weeks, slots[i:i+7])
	}
	return weeks
}

// Occurrences lists the days of the month flagged as occurrences.
func (g Grid) Occurrences() []int {
	out := make([]int, 0)
	for _, c := range g.Cells {
		if c.Occurrence {
			out = append(out, c.Day)
		}
	}
	return out
}

// YearMonth names a displayed month. Navigation returns new values; the
// caller owns which month is shown.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d date.Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// First returns the first day of the month.
func (ym YearMonth) First() date.Date {
	return date.MustNew(ym.Year, ym.Month, 1)
}

func (ym YearMonth) Next() YearMonth { return ym.add(1) }
func (ym YearMonth) Prev() YearMonth { return ym.add(-1) }

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) add(n int) YearMonth {
	idx := ym.Year*12 + int(ym.Month-1) + n
	y, m := idx/12, idx%12
	if m < 0 {
		y, m = y-1, m+12
	}
	return YearMonth{Year: y, Month: time.Month(m + 1)}
}

func (ym YearMonth) validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return fmt.Errorf("%w: got %d", ErrInvalidMonth, int(ym.Month))
	}
	return nil
}
