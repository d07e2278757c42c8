// Package reltime formats timestamps relative to a reference time for
// display, e.g. "5m ago", "in 3h" or "Mar 4".
package reltime

import (
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

// Invalid is returned for zero or unparseable timestamps.
const Invalid = "Invalid Date"

// Bucket thresholds. Each applies to the absolute distance from now.
const (
	justNow = 45 * time.Second
	hour    = time.Hour
	day     = 24 * time.Hour
	week    = 7 * day
	cutoff  = 5 * week
)

// Format renders t relative to now:
//
//	< 45s  just now / in a few sec
//	< 60m  {n}m ago / in {n}m
//	< 24h  {n}h ago / in {n}h
//	< 7d   {n}d ago / in {n}d
//	< 5w   {n}w ago / in {n}w
//
// Counts are rounded to the nearest unit. Anything further away is printed
// as a short date ("Jan 2"), with the year appended when it differs from
// the year of now. A zero t yields [Invalid].
func Format(t, now time.Time) string {
	if t.IsZero() {
		return Invalid
	}
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	switch {
	case d < justNow:
		if future {
			return "in a few sec"
		}
		return "just now"
	case d < hour:
		return unit(d, time.Minute, "m", future)
	case d < day:
		return unit(d, hour, "h", future)
	case d < week:
		return unit(d, day, "d", future)
	case d < cutoff:
		return unit(d, week, "w", future)
	}

	local := t.In(now.Location())
	if local.Year() == now.Year() {
		return local.Format("Jan 2")
	}
	return local.Format("Jan 2, 2006")
}

// FormatString parses s as RFC 3339 (or a bare YYYY-MM-DD date) and formats
// it with [Format]. Unparseable input yields [Invalid].
func FormatString(s string, now time.Time) string {
	t, err := Parse(s)
	if err != nil {
		return Invalid
	}
	return Format(t, now)
}

// Parse accepts the timestamp layouts emitted by the providers.
func Parse(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "unrecognized timestamp %q", s)
}

func unit(d, size time.Duration, suffix string, future bool) string {
	n := int64(math.Round(float64(d) / float64(size)))
	if future {
		return fmt.Sprintf("in %d%s", n, suffix)
	}
	return fmt.Sprintf("%d%s ago", n, suffix)
}
