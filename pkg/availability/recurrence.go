package availability

import (
	"time"

	"slotmarket_backend/pkg/timeutil"
)

// IntervalKind is the cadence of a recurring subscription.
type IntervalKind string

const (
	IntervalEveryday IntervalKind = "everyday"
	IntervalWeekly   IntervalKind = "weekly"
	IntervalMonthly  IntervalKind = "monthly"
)

// Pattern describes when a recurring subscription produces occurrences.
// Weekday is the anchor for weekly patterns, DayOfMonth for monthly.
type Pattern struct {
	Kind       IntervalKind
	Weekday    time.Weekday
	DayOfMonth int
}

// IsOccurrence reports whether the given calendar day is an occurrence
// of the pattern. Monthly anchors on days a month does not have (e.g.
// day 31 in April) simply never fire that month.
func IsOccurrence(date time.Time, p Pattern) bool {
	switch p.Kind {
	case IntervalEveryday:
		return true
	case IntervalWeekly:
		return date.Weekday() == p.Weekday
	case IntervalMonthly:
		return date.Day() == p.DayOfMonth
	}
	return false
}

// NextOccurrence returns the first occurrence strictly after from.
func NextOccurrence(from time.Time, p Pattern) time.Time {
	d := timeutil.DateOnly(from)

	switch p.Kind {
	case IntervalEveryday:
		return d.AddDate(0, 0, 1)

	case IntervalWeekly:
		next := d.AddDate(0, 0, 1)
		for next.Weekday() != p.Weekday {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case IntervalMonthly:
		// Walk forward month by month, skipping months that lack the
		// anchor day. time.Date normalizes overflow (Apr 31 -> May 1),
		// so a changed Day() means the month was too short.
		for i := 0; i < 48; i++ {
			candidate := time.Date(d.Year(), d.Month()+time.Month(i), p.DayOfMonth, 0, 0, 0, 0, time.UTC)
			if candidate.Day() != p.DayOfMonth {
				continue
			}
			if candidate.After(d) {
				return candidate
			}
		}
	}
	return time.Time{}
}
