package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/availability"
	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/timeutil"
)

func parseDateParam(raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return timeutil.DateOnly(d), nil
}

// GetAvailability returns the slot grid for a listing on one day.
// Optional ?granularity=30|60 overrides the listing's own slot size.
func GetAvailability(c *fiber.Ctx) error {
	var listing model.Listing
	if err := database.DB.
		First(&listing, "id = ? AND is_active = ? AND is_approved = ?", c.Params("id"), true, true).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	date, err := parseDateParam(c.Query("date"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	granularity := c.QueryInt("granularity", 0)
	if granularity != 0 && !availability.ValidGranularity(granularity) {
		return fail(c, fiber.StatusBadRequest, availability.ErrBadGranularity.Error())
	}

	slots, err := booking.SlotsForDay(database.DB, &listing, date, granularity)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	return ok(c, fiber.Map{
		"listing_id": listing.ID,
		"date":       date.Format("2006-01-02"),
		"slots":      slots,
	})
}

type RecurringCheckInput struct {
	IntervalKind  availability.IntervalKind `json:"interval_kind" validate:"required"`
	AnchorWeekday int                       `json:"anchor_weekday"`
	AnchorDay     int                       `json:"anchor_day"`
	StartTime     string                    `json:"start_time" validate:"required"`
	EndTime       string                    `json:"end_time" validate:"required"`
	HorizonDays   int                       `json:"horizon_days"`
}

func (in *RecurringCheckInput) pattern() (availability.Pattern, error) {
	p := availability.Pattern{
		Kind:       in.IntervalKind,
		Weekday:    time.Weekday(in.AnchorWeekday),
		DayOfMonth: in.AnchorDay,
	}
	switch in.IntervalKind {
	case availability.IntervalEveryday:
	case availability.IntervalWeekly:
		if in.AnchorWeekday < 0 || in.AnchorWeekday > 6 {
			return p, fiber.NewError(fiber.StatusBadRequest, "anchor_weekday must be 0-6")
		}
	case availability.IntervalMonthly:
		if in.AnchorDay < 1 || in.AnchorDay > 31 {
			return p, fiber.NewError(fiber.StatusBadRequest, "anchor_day must be 1-31")
		}
	default:
		return p, fiber.NewError(fiber.StatusBadRequest, "interval_kind must be everyday, weekly or monthly")
	}
	return p, nil
}

// CheckRecurringConflicts projects a candidate pattern over the
// booking horizon and reports every occurrence whose window is already
// taken, so clients can warn before creating a subscription.
func CheckRecurringConflicts(c *fiber.Ctx) error {
	var listing model.Listing
	if err := database.DB.
		First(&listing, "id = ? AND is_active = ? AND is_approved = ?", c.Params("id"), true, true).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	input := new(RecurringCheckInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	pattern, err := input.pattern()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	start, err := timeutil.ParseTime(input.StartTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	end, err := timeutil.ParseTime(input.EndTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	horizon := input.HorizonDays
	if horizon <= 0 || horizon > cfg.Booking.MaxAdvanceDays {
		horizon = cfg.Booking.MaxAdvanceDays
	}

	today := timeutil.DateOnly(time.Now())
	last := today.AddDate(0, 0, horizon)

	var conflicts []fiber.Map
	day := today
	if !availability.IsOccurrence(day, pattern) {
		day = availability.NextOccurrence(day, pattern)
	}
	for !day.IsZero() && !day.After(last) {
		busy, err := booking.BusyWindows(database.DB, listing.ID, day, 0, 0)
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, "Could not check availability")
		}
		if cause, conflict := availability.Conflicts(busy, start, end); conflict {
			conflicts = append(conflicts, fiber.Map{
				"date":  day.Format("2006-01-02"),
				"cause": cause,
			})
		}
		day = availability.NextOccurrence(day, pattern)
	}

	return ok(c, fiber.Map{
		"listing_id": listing.ID,
		"conflicts":  conflicts,
		"clear":      len(conflicts) == 0,
	})
}
