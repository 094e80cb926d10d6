package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/mo"

	"recurcal/internal/date"
	"recurcal/internal/grid"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// printMonth writes a plain-text month calendar. Occurrence days are
// marked with '*'.
func printMonth(w io.Writer, ev model.Event, month string, weekStart time.Weekday) error {
	ym := grid.MonthOf(ev.Rule.Start)
	if month != "" {
		parsed, err := grid.ParseYearMonth(month)
		if err != nil {
			return err
		}
		ym = parsed
	}

	g, err := grid.BuildMonthGridFrom(ev.Rule, ym, weekStart)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %d\n", ev.ID, g.Month, g.Year)
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(weekStart) + i) % 7)
		fmt.Fprintf(&b, " %s", wd.String()[:2])
	}
	b.WriteByte('\n')

	for _, week := range g.Weeks() {
		var line strings.Builder
		for _, c := range week {
			switch {
			case c == nil:
				line.WriteString("   ")
			case c.Occurrence:
				fmt.Fprintf(&line, "*%2d", c.Day)
			default:
				fmt.Fprintf(&line, " %2d", c.Day)
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// printOccurrences writes one occurrence per line up to the rule's
// default bound.
func printOccurrences(w io.Writer, ev model.Event) error {
	dates, err := recurrence.Enumerate(ev.Rule, mo.None[date.Date]())
	if err != nil {
		return err
	}
	for _, d := range dates {
		if _, err := fmt.Fprintf(w, "%s %s\n", d, d.Weekday().String()[:3]); err != nil {
			return err
		}
	}
	return nil
}
