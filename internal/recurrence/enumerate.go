package recurrence

import (
	"github.com/samber/mo"

	"recurcal/internal/date"
)

// Bound returns the last date enumeration of r may consider: the earlier of
// r.End (or r.Start plus one year when no end is set) and horizon.
func Bound(r Rule, horizon mo.Option[date.Date]) date.Date {
	upper := r.End.OrElse(r.DefaultHorizon())
	if h, ok := horizon.Get(); ok {
		upper = date.Min(upper, h)
	}
	return upper
}

// Enumerate returns every occurrence of r in ascending order, from r.Start
// up to Bound(r, horizon) inclusive. An empty range yields an empty slice.
//
// The scan visits each day once, so its cost is linear in the number of
// days in range. Callers wanting long horizons should clamp them first.
func Enumerate(r Rule, horizon mo.Option[date.Date]) ([]date.Date, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return scan(r, r.Start, Bound(r, horizon)), nil
}

// Between returns the occurrences of r within [from, to], further limited
// to [r.Start, Bound(r, None)].
func Between(r Rule, from, to date.Date) ([]date.Date, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if from.Before(r.Start) {
		from = r.Start
	}
	return scan(r, from, Bound(r, mo.Some(to))), nil
}

func scan(r Rule, from, to date.Date) []date.Date {
	out := make([]date.Date, 0)
	for d := from; !d.After(to); d = d.AddDays(1) {
		if matches(r, d) {
			out = append(out, d)
		}
	}
	return out
}
