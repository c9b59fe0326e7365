package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsOccurrence(t *testing.T) {
	everyday := Pattern{Kind: IntervalEveryday}
	assert.True(t, IsOccurrence(date(2025, 6, 2), everyday))
	assert.True(t, IsOccurrence(date(2025, 6, 3), everyday))

	monday := Pattern{Kind: IntervalWeekly, Weekday: time.Monday}
	assert.True(t, IsOccurrence(date(2025, 6, 2), monday)) // a Monday
	assert.False(t, IsOccurrence(date(2025, 6, 3), monday))

	fifteenth := Pattern{Kind: IntervalMonthly, DayOfMonth: 15}
	assert.True(t, IsOccurrence(date(2025, 6, 15), fifteenth))
	assert.False(t, IsOccurrence(date(2025, 6, 14), fifteenth))
}

func TestMonthlyAnchorSkipsShortMonths(t *testing.T) {
	p := Pattern{Kind: IntervalMonthly, DayOfMonth: 31}
	assert.False(t, IsOccurrence(date(2025, 4, 30), p))
	assert.True(t, IsOccurrence(date(2025, 5, 31), p))

	// From March 31 the next firing month with a 31st is May.
	next := NextOccurrence(date(2025, 3, 31), p)
	assert.Equal(t, date(2025, 5, 31), next)
}

func TestNextOccurrence(t *testing.T) {
	everyday := Pattern{Kind: IntervalEveryday}
	assert.Equal(t, date(2025, 6, 3), NextOccurrence(date(2025, 6, 2), everyday))

	monday := Pattern{Kind: IntervalWeekly, Weekday: time.Monday}
	// From a Monday, the next occurrence is the following Monday.
	assert.Equal(t, date(2025, 6, 9), NextOccurrence(date(2025, 6, 2), monday))
	// From mid-week it lands on the upcoming Monday.
	assert.Equal(t, date(2025, 6, 9), NextOccurrence(date(2025, 6, 4), monday))

	fifteenth := Pattern{Kind: IntervalMonthly, DayOfMonth: 15}
	assert.Equal(t, date(2025, 7, 15), NextOccurrence(date(2025, 6, 15), fifteenth))
	assert.Equal(t, date(2025, 6, 15), NextOccurrence(date(2025, 6, 1), fifteenth))

	// Time-of-day on the input never shifts the projected date.
	assert.Equal(t, date(2025, 6, 3),
		NextOccurrence(time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC), everyday))
}

func TestNextOccurrenceFebruary(t *testing.T) {
	p := Pattern{Kind: IntervalMonthly, DayOfMonth: 30}
	// January 30 -> February has no 30th -> March 30.
	assert.Equal(t, date(2025, 3, 30), NextOccurrence(date(2025, 1, 30), p))
}
