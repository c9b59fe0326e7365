package booking

import "errors"

// Conflict and authorization errors surfaced to API callers. None of
// these are retryable.
var (
	ErrSlotTaken         = errors.New("the requested time slot is no longer available")
	ErrRescheduleLimit   = errors.New("reservation has reached its reschedule limit")
	ErrInvalidTransition = errors.New("invalid reservation status transition")
	ErrNotAuthorized     = errors.New("you are not allowed to perform this action")
	ErrOutsideHours      = errors.New("requested time is outside the listing's open hours")
	ErrListingInactive   = errors.New("listing is not open for booking")
	ErrTooFarAhead       = errors.New("date is beyond the advance booking horizon")
)
