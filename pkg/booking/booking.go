// Package booking owns the reservation lifecycle: slot claiming,
// confirm/cancel/reschedule/complete, and the conflict checks shared
// by the API controllers and the background sweeps.
package booking

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/availability"
	"slotmarket_backend/pkg/commission"
	"slotmarket_backend/pkg/config"
	"slotmarket_backend/pkg/events"
	"slotmarket_backend/pkg/timeutil"
)

// Notify receives post-hoc domain events. Core mutations never depend
// on publish success; set it once at startup.
var Notify events.Publisher = events.NopPublisher{}

// BusyWindows collects every occupied window on a listing/date: real
// non-cancelled reservations plus projected occurrences of claiming
// subscriptions that have not materialized a reservation yet.
// excludeReservationID and excludeSubscriptionID carve out the
// caller's own slot during reschedules.
func BusyWindows(db *gorm.DB, listingID uint, date time.Time, excludeReservationID, excludeSubscriptionID uint) ([]availability.BusyWindow, error) {
	day := timeutil.DateOnly(date)

	var reservations []model.Reservation
	q := db.Where("listing_id = ? AND date = ? AND status <> ?", listingID, day, model.ReservationCancelled)
	if excludeReservationID != 0 {
		q = q.Where("id <> ?", excludeReservationID)
	}
	if err := q.Find(&reservations).Error; err != nil {
		return nil, err
	}

	var busy []availability.BusyWindow
	covered := map[uint]bool{}
	for _, r := range reservations {
		busy = append(busy, availability.BusyWindow{
			StartMinute: r.StartMinute,
			EndMinute:   r.EndMinute,
			Cause:       availability.CauseReservation,
		})
		if r.SubscriptionID != nil {
			covered[*r.SubscriptionID] = true
		}
	}

	var subs []model.RecurringSubscription
	if err := db.Where("listing_id = ? AND status = ? AND cancel_at_period_end = ?",
		listingID, model.SubscriptionActive, false).
		Find(&subs).Error; err != nil {
		return nil, err
	}

	for _, sub := range subs {
		if sub.ID == excludeSubscriptionID {
			continue
		}
		if covered[sub.ID] {
			// The occurrence already exists as a real reservation.
			continue
		}
		if !availability.IsOccurrence(day, sub.Pattern()) {
			continue
		}
		busy = append(busy, availability.BusyWindow{
			StartMinute: sub.StartMinute,
			EndMinute:   sub.EndMinute,
			Cause:       availability.CauseRecurring,
		})
	}

	return busy, nil
}

// SlotsForDay runs the availability resolver for a listing and date.
// granularity 0 falls back to the listing's own.
func SlotsForDay(db *gorm.DB, listing *model.Listing, date time.Time, granularity int) ([]availability.Slot, error) {
	if granularity == 0 {
		granularity = listing.Granularity
	}
	busy, err := BusyWindows(db, listing.ID, date, 0, 0)
	if err != nil {
		return nil, err
	}
	return availability.Resolve(listing.OpenMinute, listing.CloseMinute, granularity, busy)
}

// CheckSlot returns ErrSlotTaken when [start,end) conflicts on the
// listing/date. The caller's own reservation/subscription can be
// excluded for reschedules.
func CheckSlot(db *gorm.DB, listingID uint, date time.Time, start, end int, excludeReservationID, excludeSubscriptionID uint) error {
	busy, err := BusyWindows(db, listingID, date, excludeReservationID, excludeSubscriptionID)
	if err != nil {
		return err
	}
	if _, conflict := availability.Conflicts(busy, start, end); conflict {
		return ErrSlotTaken
	}
	return nil
}

// GrossFor prices a window on a listing: price per slot unit times the
// number of granularity units.
func GrossFor(listing *model.Listing, start, end int) float64 {
	units := float64(end-start) / float64(listing.Granularity)
	return commission.Round2(listing.PricePerSlot * units)
}

// CommissionFor resolves the owner's effective rate (override row if
// present, platform default otherwise) and splits gross.
func CommissionFor(db *gorm.DB, cfg config.BookingConfig, ownerID uint, gross float64) (commission.Breakdown, error) {
	var override model.CommissionOverride
	err := db.Where("owner_id = ?", ownerID).First(&override).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return commission.Breakdown{}, err
	}

	var rate *int
	if err == nil {
		rate = &override.Percent
	}
	return commission.Calculate(gross, rate, cfg.PlatformCommissionPercent)
}

func validateWindow(listing *model.Listing, start, end int) error {
	if end <= start {
		return fmt.Errorf("end time must be after start time")
	}
	if start < listing.OpenMinute || end > listing.CloseMinute {
		return ErrOutsideHours
	}
	if (end-start)%listing.Granularity != 0 {
		return fmt.Errorf("duration must be a multiple of %d minutes", listing.Granularity)
	}
	return nil
}

// NewReservation claims a slot. The availability check is an
// optimistic hint; the partial unique index on non-cancelled
// reservations is the real guard, so a lost race comes back as
// ErrSlotTaken from the insert itself.
func NewReservation(db *gorm.DB, cfg config.BookingConfig, listing *model.Listing, consumerID uint, date time.Time, start, end int, subscriptionID *uint) (*model.Reservation, error) {
	if !listing.IsActive || !listing.IsApproved {
		return nil, ErrListingInactive
	}
	if err := validateWindow(listing, start, end); err != nil {
		return nil, err
	}

	day := timeutil.DateOnly(date)
	horizon := timeutil.DateOnly(time.Now()).AddDate(0, 0, cfg.MaxAdvanceDays)
	if day.After(horizon) {
		return nil, ErrTooFarAhead
	}

	var excludeSub uint
	if subscriptionID != nil {
		excludeSub = *subscriptionID
	}
	if err := CheckSlot(db, listing.ID, day, start, end, 0, excludeSub); err != nil {
		return nil, err
	}

	gross := GrossFor(listing, start, end)
	split, err := CommissionFor(db, cfg, listing.OwnerID, gross)
	if err != nil {
		return nil, err
	}

	reservation := &model.Reservation{
		ListingID:      listing.ID,
		ConsumerID:     consumerID,
		Date:           day,
		StartMinute:    start,
		EndMinute:      end,
		GrossAmount:    gross,
		OwnerAmount:    split.OwnerAmount,
		PlatformAmount: split.PlatformAmount,
		CommissionRate: split.RateUsed,
		Status:         model.ReservationPending,
		PaymentStatus:  model.PaymentUnpaid,
		SubscriptionID: subscriptionID,
	}

	if err := db.Create(reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return reservation, nil
}

// Confirm moves a pending reservation to confirmed. Owner or admin
// only.
func Confirm(db *gorm.DB, reservation *model.Reservation, actor *model.User) error {
	if actor.ID != reservation.Listing.OwnerID && !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	if !model.CanTransition(reservation.Status, model.ReservationConfirmed) {
		return ErrInvalidTransition
	}

	reservation.Status = model.ReservationConfirmed
	if err := db.Model(reservation).Update("status", model.ReservationConfirmed).Error; err != nil {
		return err
	}

	if err := Notify.Publish(events.QueueReservationConfirmed, map[string]interface{}{
		"reservation_reference": reservation.Reference,
		"listing_id":            reservation.ListingID,
		"consumer_id":           reservation.ConsumerID,
		"date":                  reservation.Date.Format("2006-01-02"),
		"start_time":            timeutil.FormatTime(reservation.StartMinute),
	}); err != nil {
		log.Printf("booking: confirm event publish failed for %s: %v", reservation.Reference, err)
	}
	return nil
}

// Cancel applies the cancellation rules. Consumers, the listing owner
// and admins may cancel; a consumer cancelling inside the window gets
// no refund and the owner's share is queued for settlement instead.
// Owner/admin cancellations always refund the consumer.
func Cancel(db *gorm.DB, cfg config.BookingConfig, reservation *model.Reservation, actor *model.User, reason string, now time.Time) error {
	isConsumer := actor.ID == reservation.ConsumerID
	isOwner := actor.ID == reservation.Listing.OwnerID
	if !isConsumer && !isOwner && !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	if !model.CanTransition(reservation.Status, model.ReservationCancelled) {
		return ErrInvalidTransition
	}

	cancelledBy := model.RoleAdmin
	switch {
	case isConsumer:
		cancelledBy = model.RoleConsumer
	case isOwner:
		cancelledBy = model.RoleOwner
	}

	updates := map[string]interface{}{
		"status":        model.ReservationCancelled,
		"cancel_reason": reason,
		"cancelled_at":  now,
		"cancelled_by":  cancelledBy,
	}

	refundable := reservation.RefundEligible(now, cfg.CancellationWindowHours)
	if isConsumer && !refundable && reservation.PaymentStatus == model.PaymentPaid {
		// Late consumer cancellation: funds stay collected and the
		// owner's share goes to the settlement queue.
		updates["payout_status"] = model.PayoutPending
	} else if reservation.PaymentStatus == model.PaymentPaid {
		updates["payment_status"] = model.PaymentRefunded
	}

	if err := db.Model(reservation).Updates(updates).Error; err != nil {
		return err
	}
	if err := db.First(reservation, reservation.ID).Error; err != nil {
		return err
	}

	if err := Notify.Publish(events.QueueReservationCancelled, map[string]interface{}{
		"reservation_reference": reservation.Reference,
		"cancelled_by":          cancelledBy,
		"refunded":              reservation.PaymentStatus == model.PaymentRefunded,
		"reason":                reason,
	}); err != nil {
		log.Printf("booking: cancel event publish failed for %s: %v", reservation.Reference, err)
	}
	return nil
}

// Reschedule moves a reservation to a new window, at most
// model.MaxReschedules times, re-running the conflict check (ignoring
// the reservation's own slot and its own subscription's projections)
// and re-pricing against the new duration.
func Reschedule(db *gorm.DB, cfg config.BookingConfig, reservation *model.Reservation, actor *model.User, newDate time.Time, newStart, newEnd int) error {
	if actor.ID != reservation.ConsumerID && !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	if reservation.Status != model.ReservationPending && reservation.Status != model.ReservationConfirmed {
		return ErrInvalidTransition
	}
	if reservation.RescheduleCount >= model.MaxReschedules {
		return ErrRescheduleLimit
	}

	listing := &reservation.Listing
	if err := validateWindow(listing, newStart, newEnd); err != nil {
		return err
	}

	day := timeutil.DateOnly(newDate)
	var ownSub uint
	if reservation.SubscriptionID != nil {
		ownSub = *reservation.SubscriptionID
	}
	if err := CheckSlot(db, listing.ID, day, newStart, newEnd, reservation.ID, ownSub); err != nil {
		return err
	}

	gross := GrossFor(listing, newStart, newEnd)
	split, err := CommissionFor(db, cfg, listing.OwnerID, gross)
	if err != nil {
		return err
	}

	return db.Model(reservation).Updates(map[string]interface{}{
		"date":             day,
		"start_minute":     newStart,
		"end_minute":       newEnd,
		"gross_amount":     gross,
		"owner_amount":     split.OwnerAmount,
		"platform_amount":  split.PlatformAmount,
		"commission_rate":  split.RateUsed,
		"reschedule_count": gorm.Expr("reschedule_count + 1"),
	}).Error
}

// Complete marks a confirmed reservation completed, queues its payout,
// and materializes the next occurrence when it belongs to a
// subscription. actor nil means the completion sweep.
func Complete(db *gorm.DB, cfg config.BookingConfig, reservation *model.Reservation, actor *model.User) error {
	if actor != nil && actor.ID != reservation.Listing.OwnerID && !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	if !model.CanTransition(reservation.Status, model.ReservationCompleted) {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{"status": model.ReservationCompleted}
	if reservation.PaymentStatus == model.PaymentPaid && reservation.PayoutStatus == model.PayoutNone {
		updates["payout_status"] = model.PayoutPending
	}
	if err := db.Model(reservation).Updates(updates).Error; err != nil {
		return err
	}
	reservation.Status = model.ReservationCompleted

	if reservation.SubscriptionID != nil {
		if err := materializeNextOccurrence(db, cfg, reservation); err != nil {
			// The subscription catches up on the next completion; the
			// completed reservation itself is fine.
			log.Printf("booking: could not create follow-on for %s: %v", reservation.Reference, err)
		}
	}
	return nil
}

// materializeNextOccurrence creates the follow-on reservation for a
// subscription after one of its occurrences completes, as long as the
// next date is inside the advance horizon and not already taken.
func materializeNextOccurrence(db *gorm.DB, cfg config.BookingConfig, completed *model.Reservation) error {
	var sub model.RecurringSubscription
	if err := db.First(&sub, *completed.SubscriptionID).Error; err != nil {
		return err
	}
	if !sub.Claiming() {
		return nil
	}

	next := availability.NextOccurrence(completed.Date, sub.Pattern())
	if next.IsZero() {
		return fmt.Errorf("subscription %d has no next occurrence", sub.ID)
	}

	horizon := timeutil.DateOnly(time.Now()).AddDate(0, 0, cfg.MaxAdvanceDays)
	if next.After(horizon) {
		return nil
	}

	var count int64
	if err := db.Model(&model.Reservation{}).
		Where("subscription_id = ? AND date = ? AND status <> ?", sub.ID, next, model.ReservationCancelled).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var listing model.Listing
	if err := db.First(&listing, sub.ListingID).Error; err != nil {
		return err
	}

	_, err := NewReservation(db, cfg, &listing, sub.ConsumerID, next, sub.StartMinute, sub.EndMinute, &sub.ID)
	if errors.Is(err, ErrSlotTaken) {
		// Someone booked the window first; the subscription skips this
		// occurrence.
		return nil
	}
	if err != nil {
		return err
	}

	return db.Model(&sub).Update("last_occurrence", next).Error
}
