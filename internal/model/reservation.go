package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"slotmarket_backend/pkg/timeutil"
)

// Reservation Status
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Payment Status
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payout Status. Empty means funds are not yet due.
type PayoutStatus string

const (
	PayoutNone       PayoutStatus = ""
	PayoutPending    PayoutStatus = "pending"
	PayoutHeld       PayoutStatus = "held"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutFailed     PayoutStatus = "failed"
)

// MaxReschedules caps how often a single reservation can be moved.
const MaxReschedules = 3

// DefaultCancellationWindowHours is the minimum notice for a
// refund-eligible cancellation.
const DefaultCancellationWindowHours = 24

// transitions is the authoritative state machine table. Anything not
// listed is rejected.
var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCompleted, ReservationCancelled},
	ReservationCompleted: {},
	ReservationCancelled: {},
}

// CanTransition reports whether moving from one status to another is
// allowed.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Reservation struct {
	gorm.Model
	Reference  string `json:"reference" gorm:"uniqueIndex;not null"`
	ListingID  uint   `json:"listing_id" gorm:"index:idx_listing_date;not null"`
	ConsumerID uint   `json:"consumer_id" gorm:"index;not null"`

	// Date is the calendar day (midnight UTC); slot bounds are minutes
	// of day, start inclusive, end exclusive.
	Date        time.Time `json:"date" gorm:"index:idx_listing_date;not null"`
	StartMinute int       `json:"start_minute" gorm:"not null"`
	EndMinute   int       `json:"end_minute" gorm:"not null"`

	GrossAmount    float64 `json:"gross_amount" gorm:"not null"`
	OwnerAmount    float64 `json:"owner_amount"`
	PlatformAmount float64 `json:"platform_amount"`
	CommissionRate int     `json:"commission_rate"`

	Status        ReservationStatus `json:"status" gorm:"not null;default:'pending'"`
	PaymentStatus PaymentStatus     `json:"payment_status" gorm:"not null;default:'unpaid'"`
	PayoutStatus  PayoutStatus      `json:"payout_status" gorm:"default:''"`
	HeldReason    string            `json:"held_reason,omitempty"`
	// PayoutAttempts counts permanent gateway failures; after the
	// second the reservation stays failed for administrators.
	PayoutAttempts int `json:"payout_attempts" gorm:"default:0"`

	RescheduleCount int `json:"reschedule_count" gorm:"default:0"`

	SubscriptionID *uint `json:"subscription_id,omitempty" gorm:"index"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  Role       `json:"cancelled_by,omitempty"`

	Listing      Listing                `json:"-" gorm:"foreignKey:ListingID"`
	Consumer     User                   `json:"-" gorm:"foreignKey:ConsumerID"`
	Subscription *RecurringSubscription `json:"-" gorm:"foreignKey:SubscriptionID"`
}

// BeforeCreate assigns the opaque reference used in gateway metadata
// and client-facing URLs.
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.Reference == "" {
		r.Reference = uuid.NewString()
	}
	return nil
}

// StartsAt is the absolute start instant of the reservation.
func (r *Reservation) StartsAt() time.Time {
	return timeutil.AtMinute(r.Date, r.StartMinute)
}

// EndsAt is the absolute end instant of the reservation.
func (r *Reservation) EndsAt() time.Time {
	return timeutil.AtMinute(r.Date, r.EndMinute)
}

// RefundEligible reports whether a consumer cancellation at `now`
// still qualifies for a refund given the cancellation window.
func (r *Reservation) RefundEligible(now time.Time, windowHours int) bool {
	if windowHours <= 0 {
		windowHours = DefaultCancellationWindowHours
	}
	return r.StartsAt().Sub(now) >= time.Duration(windowHours)*time.Hour
}

// PayoutEligible reports whether the settlement sweep should pick this
// reservation up. Completed paid reservations are payable unless a
// payout is already in flight; cancelled ones only when the late-
// cancellation path explicitly queued them (payout status pending or
// held).
func (r *Reservation) PayoutEligible() bool {
	if r.PaymentStatus != PaymentPaid {
		return false
	}
	switch r.Status {
	case ReservationCompleted:
		return r.PayoutStatus == PayoutNone || r.PayoutStatus == PayoutPending || r.PayoutStatus == PayoutHeld
	case ReservationCancelled:
		return r.PayoutStatus == PayoutPending || r.PayoutStatus == PayoutHeld
	}
	return false
}
