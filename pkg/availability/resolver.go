// Package availability enumerates bookable slots for a listing on a
// given day and answers conflict checks against existing reservations
// and projected recurring occurrences. All functions here are pure;
// callers fetch the busy windows from storage.
package availability

import (
	"errors"
	"fmt"

	"slotmarket_backend/pkg/timeutil"
)

// ErrBadGranularity rejects slot sizes other than 30 or 60 minutes.
var ErrBadGranularity = errors.New("slot granularity must be 30 or 60 minutes")

// ConflictCause identifies what makes a slot unavailable.
type ConflictCause string

const (
	CauseReservation ConflictCause = "reservation"
	CauseRecurring   ConflictCause = "recurring"
)

// DisplayBufferMinutes is shaved off each slot's displayed end time so
// owners get turnover room. Overlap math always uses the true end.
const DisplayBufferMinutes = 5

// BusyWindow is an occupied time range on a listing/date, either a
// real reservation or a projected recurring occurrence.
type BusyWindow struct {
	StartMinute int
	EndMinute   int
	Cause       ConflictCause
}

// Slot is one candidate booking window between opening and closing.
type Slot struct {
	StartMinute    int           `json:"start_minute"`
	EndMinute      int           `json:"end_minute"`
	StartTime      string        `json:"start_time"`
	EndTime        string        `json:"end_time"`
	DisplayEndTime string        `json:"display_end_time"`
	Available      bool          `json:"available"`
	ConflictCause  ConflictCause `json:"conflict_cause,omitempty"`
}

// ValidGranularity reports whether g is a supported slot size.
func ValidGranularity(g int) bool {
	return g == 30 || g == 60
}

// Resolve walks the open range in granularity-sized steps and stamps
// each slot against the busy windows. The last slot must fit fully
// before closing; no partial trailing slot is produced.
func Resolve(openMinute, closeMinute, granularity int, busy []BusyWindow) ([]Slot, error) {
	if !ValidGranularity(granularity) {
		return nil, ErrBadGranularity
	}
	if closeMinute <= openMinute {
		return nil, fmt.Errorf("closing time must be after opening time")
	}

	var slots []Slot
	for start := openMinute; start+granularity <= closeMinute; start += granularity {
		end := start + granularity
		slot := Slot{
			StartMinute:    start,
			EndMinute:      end,
			StartTime:      timeutil.FormatTime(start),
			EndTime:        timeutil.FormatTime(end),
			DisplayEndTime: timeutil.FormatTime(end - DisplayBufferMinutes),
			Available:      true,
		}
		if cause, conflict := Conflicts(busy, start, end); conflict {
			slot.Available = false
			slot.ConflictCause = cause
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Conflicts tests [start,end) against every busy window and returns
// the first conflicting cause. Direct reservations win over recurring
// projections when both overlap.
func Conflicts(busy []BusyWindow, start, end int) (ConflictCause, bool) {
	var cause ConflictCause
	for _, b := range busy {
		if !timeutil.Overlaps(start, end, b.StartMinute, b.EndMinute) {
			continue
		}
		if b.Cause == CauseReservation {
			return CauseReservation, true
		}
		cause = b.Cause
	}
	return cause, cause != ""
}
