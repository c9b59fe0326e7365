// Package timeutil converts between display time strings and the
// minute-of-day integers used by the availability and booking code.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

// ParseTime accepts "H:MM", "HH:MM" and 12-hour forms like "2:30PM" or
// "2:30 pm" and returns the minute of day. 12:xxAM maps to 0:xx and
// 12:xxPM maps to 12:xx.
func ParseTime(s string) (int, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("empty time string")
	}

	upper := strings.ToUpper(raw)
	meridiem := ""
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		meridiem = upper[len(upper)-2:]
		upper = strings.TrimSpace(upper[:len(upper)-2])
	}

	parts := strings.Split(upper, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected H:MM", s)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid hour in %q", s)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid hour in %q", s)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("invalid hour in %q", s)
		}
	}

	return hour*60 + minute, nil
}

// FormatTime renders a minute of day as 12-hour clock with meridiem,
// e.g. 0 -> "12:00 AM", 720 -> "12:00 PM", 810 -> "1:30 PM".
func FormatTime(minuteOfDay int) string {
	m := ((minuteOfDay % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hour := m / 60
	minute := m % 60

	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, meridiem)
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Intervals are start-inclusive and end-exclusive so back-to-back
// slots never conflict.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// DateOnly strips the time-of-day, returning midnight UTC of the same
// calendar day. Reservation dates are stored in this form.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AtMinute combines a calendar day with a minute of day into an
// absolute instant (UTC).
func AtMinute(date time.Time, minuteOfDay int) time.Time {
	d := DateOnly(date)
	return d.Add(time.Duration(minuteOfDay) * time.Minute)
}
