package settlement

import (
	"time"

	"slotmarket_backend/internal/model"
)

// Store is the persistence surface the engine needs. The GORM
// implementation lives in gorm_store.go; tests use an in-memory fake.
type Store interface {
	// PayableReservations returns reservations matching the settlement
	// predicate (completed+paid with payout unset/pending/held, plus
	// cancelled-non-refund rows queued as pending/held), with their
	// listing loaded.
	PayableReservations() ([]model.Reservation, error)

	// ClaimReservation re-reads the row and moves its payout status
	// to processing only if it is still payable. Returns false when
	// another pass or a user action got there first.
	ClaimReservation(id uint) (bool, error)

	// SetPayoutStatus updates the reservation's payout fields.
	SetPayoutStatus(id uint, status model.PayoutStatus, heldReason string) error

	// RecordPayoutFailure marks the reservation failed and bumps its
	// attempt counter.
	RecordPayoutFailure(id uint) error

	ReservationByID(id uint) (*model.Reservation, error)

	AccountForOwner(ownerID uint) (*model.PayoutAccount, error)

	CreatePayout(p *model.Payout) error

	// PayoutByTransferID resolves a gateway callback to the payout it
	// concerns; nil when the transfer is not ours.
	PayoutByTransferID(transferID string) (*model.Payout, error)

	// MarkPayoutPaid finalizes a payout with the arrival date the
	// gateway reported.
	MarkPayoutPaid(id uint, arrival time.Time) error

	// MarkPayoutFailed records a gateway-reported failure on an
	// existing payout.
	MarkPayoutFailed(id uint, code, message string) error

	// FailedPayoutsSince returns failed payouts last touched after the
	// cutoff that have not yet been retried.
	FailedPayoutsSince(cutoff time.Time) ([]model.Payout, error)
	MarkPayoutRetried(id uint) error

	// ReleaseHeld flips an owner's held reservations back to pending
	// and returns how many were released.
	ReleaseHeld(ownerID uint) (int64, error)
}
