package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to ReservationStatus }{
		{ReservationPending, ReservationConfirmed},
		{ReservationPending, ReservationCancelled},
		{ReservationConfirmed, ReservationCompleted},
		{ReservationConfirmed, ReservationCancelled},
	}
	for _, tr := range allowed {
		assert.Truef(t, CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}

	rejected := []struct{ from, to ReservationStatus }{
		{ReservationPending, ReservationCompleted},
		{ReservationCompleted, ReservationCancelled},
		{ReservationCompleted, ReservationConfirmed},
		{ReservationCancelled, ReservationPending},
		{ReservationCancelled, ReservationConfirmed},
		{ReservationConfirmed, ReservationPending},
	}
	for _, tr := range rejected {
		assert.Falsef(t, CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestRefundEligible(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	r := Reservation{Date: day, StartMinute: 14 * 60, EndMinute: 15 * 60}

	// Exactly 24h of notice still qualifies.
	assert.True(t, r.RefundEligible(time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC), 24))
	assert.True(t, r.RefundEligible(time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), 24))
	assert.False(t, r.RefundEligible(time.Date(2025, 6, 9, 14, 1, 0, 0, time.UTC), 24))
	assert.False(t, r.RefundEligible(time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC), 24))
}

func TestPayoutEligible(t *testing.T) {
	base := Reservation{Status: ReservationCompleted, PaymentStatus: PaymentPaid}

	for _, ps := range []PayoutStatus{PayoutNone, PayoutPending, PayoutHeld} {
		r := base
		r.PayoutStatus = ps
		assert.Truef(t, r.PayoutEligible(), "payout status %q", ps)
	}

	for _, ps := range []PayoutStatus{PayoutProcessing, PayoutPaid, PayoutFailed} {
		r := base
		r.PayoutStatus = ps
		assert.Falsef(t, r.PayoutEligible(), "payout status %q", ps)
	}

	unpaid := base
	unpaid.PaymentStatus = PaymentUnpaid
	assert.False(t, unpaid.PayoutEligible())

	// Cancelled rows settle only when the late-cancellation path
	// queued them.
	late := Reservation{Status: ReservationCancelled, PaymentStatus: PaymentPaid, PayoutStatus: PayoutPending}
	assert.True(t, late.PayoutEligible())
	refunded := Reservation{Status: ReservationCancelled, PaymentStatus: PaymentPaid, PayoutStatus: PayoutNone}
	assert.False(t, refunded.PayoutEligible())
}
