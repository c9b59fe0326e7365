package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/availability"
	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/timeutil"
	"slotmarket_backend/pkg/utils/jwt"
)

type SubscriptionInput struct {
	ListingID     uint                      `json:"listing_id" validate:"required"`
	IntervalKind  availability.IntervalKind `json:"interval_kind" validate:"required"`
	AnchorWeekday int                       `json:"anchor_weekday"`
	AnchorDay     int                       `json:"anchor_day"`
	StartTime     string                    `json:"start_time" validate:"required"`
	EndTime       string                    `json:"end_time" validate:"required"`
}

// CreateSubscription opens a recurring claim and materializes its
// first reservation in the same transaction, so a conflicting window
// rejects the whole subscription.
func CreateSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(SubscriptionInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	check := RecurringCheckInput{
		IntervalKind:  input.IntervalKind,
		AnchorWeekday: input.AnchorWeekday,
		AnchorDay:     input.AnchorDay,
	}
	pattern, err := check.pattern()
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

	var listing model.Listing
	if err := database.DB.
		First(&listing, "id = ? AND is_active = ? AND is_approved = ?", input.ListingID, true, true).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	now := time.Now()
	first := timeutil.DateOnly(now)
	nowMinute := now.UTC().Hour()*60 + now.UTC().Minute()
	if !availability.IsOccurrence(first, pattern) || start <= nowMinute {
		first = availability.NextOccurrence(first, pattern)
	}
	if first.IsZero() {
		return fail(c, fiber.StatusBadRequest, "Pattern never produces an occurrence")
	}

	sub := model.RecurringSubscription{
		ListingID:     listing.ID,
		ConsumerID:    claims.UserID,
		IntervalKind:  input.IntervalKind,
		AnchorWeekday: input.AnchorWeekday,
		AnchorDay:     input.AnchorDay,
		StartMinute:   start,
		EndMinute:     end,
		Status:        model.SubscriptionActive,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		reservation, err := booking.NewReservation(tx, cfg.Booking, &listing, claims.UserID, first, start, end, &sub.ID)
		if err != nil {
			return err
		}
		return tx.Model(&sub).Updates(map[string]interface{}{
			"last_occurrence": reservation.Date,
		}).Error
	})
	if err != nil {
		return failFrom(c, err)
	}

	return created(c, fiber.Map{
		"subscription":     sub,
		"first_occurrence": first.Format("2006-01-02"),
	})
}

func ListMySubscriptions(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var subs []model.RecurringSubscription
	if err := database.DB.Where("consumer_id = ?", claims.UserID).
		Order("created_at DESC").Find(&subs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch subscriptions")
	}
	return ok(c, subs)
}

type CancelSubscriptionInput struct {
	Immediate bool   `json:"immediate"`
	Reason    string `json:"reason"`
}

// CancelSubscription stops a recurring claim. The default lets already
// materialized reservations play out and just stops projecting;
// immediate also cancels every future reservation of the subscription
// under the normal refund rules.
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.RecurringSubscription
	if err := database.DB.First(&sub, "id = ?", c.Params("id")).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Subscription not found")
	}

	actor := actorFrom(claims)
	if actor.ID != sub.ConsumerID && !actor.IsAdmin() {
		return fail(c, fiber.StatusForbidden, "Not your subscription")
	}
	if sub.Status == model.SubscriptionCanceled {
		return fail(c, fiber.StatusConflict, "Subscription already canceled")
	}

	input := new(CancelSubscriptionInput)
	_ = c.BodyParser(input)

	if !input.Immediate {
		if err := database.DB.Model(&sub).Update("cancel_at_period_end", true).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "Could not cancel subscription")
		}
		sub.CancelAtPeriodEnd = true
		return ok(c, sub)
	}

	today := timeutil.DateOnly(time.Now())
	var future []model.Reservation
	if err := database.DB.Preload("Listing").
		Where("subscription_id = ? AND date >= ? AND status IN ?",
			sub.ID, today, []model.ReservationStatus{model.ReservationPending, model.ReservationConfirmed}).
		Find(&future).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch reservations")
	}

	now := time.Now()
	cancelled := 0
	for i := range future {
		if err := booking.Cancel(database.DB, cfg.Booking, &future[i], actor, input.Reason, now); err != nil {
			return failFrom(c, err)
		}
		cancelled++
	}

	if err := database.DB.Model(&sub).Updates(map[string]interface{}{
		"status":               model.SubscriptionCanceled,
		"cancel_at_period_end": true,
	}).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not cancel subscription")
	}
	sub.Status = model.SubscriptionCanceled

	return ok(c, fiber.Map{
		"subscription":           sub,
		"cancelled_reservations": cancelled,
	})
}
