package model

import (
	"time"

	"gorm.io/gorm"

	"slotmarket_backend/pkg/availability"
)

// Subscription Status
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// RecurringSubscription is an open-ended claim on the same time window
// of a listing at a daily, weekly or monthly cadence. Each occurrence
// materializes as one Reservation.
type RecurringSubscription struct {
	gorm.Model
	ListingID  uint `json:"listing_id" gorm:"index;not null"`
	ConsumerID uint `json:"consumer_id" gorm:"index;not null"`

	IntervalKind  availability.IntervalKind `json:"interval_kind" gorm:"not null"`
	AnchorWeekday int                       `json:"anchor_weekday"` // 0=Sunday, weekly only
	AnchorDay     int                       `json:"anchor_day"`     // day of month, monthly only

	StartMinute int `json:"start_minute" gorm:"not null"`
	EndMinute   int `json:"end_minute" gorm:"not null"`

	Status            SubscriptionStatus `json:"status" gorm:"not null;default:'active'"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end" gorm:"default:false"`
	LastOccurrence    *time.Time         `json:"last_occurrence,omitempty"`

	StripeSubID           string `json:"stripe_subscription_id"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id"`

	Listing      Listing       `json:"-" gorm:"foreignKey:ListingID"`
	Consumer     User          `json:"-" gorm:"foreignKey:ConsumerID"`
	Reservations []Reservation `json:"-" gorm:"foreignKey:SubscriptionID"`
}

// Pattern converts the stored anchors into the projector's form.
func (s *RecurringSubscription) Pattern() availability.Pattern {
	return availability.Pattern{
		Kind:       s.IntervalKind,
		Weekday:    time.Weekday(s.AnchorWeekday),
		DayOfMonth: s.AnchorDay,
	}
}

// Claiming reports whether the subscription still projects occurrences
// that should block availability.
func (s *RecurringSubscription) Claiming() bool {
	return s.Status == SubscriptionActive && !s.CancelAtPeriodEnd
}
