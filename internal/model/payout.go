package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PayoutAccount is the owner's registration with the payment gateway.
// One row per owner, updated whenever the gateway reports a capability
// change.
type PayoutAccount struct {
	gorm.Model
	OwnerID         uint   `json:"owner_id" gorm:"uniqueIndex;not null"`
	StripeAccountID string `json:"stripe_account_id" gorm:"uniqueIndex;not null"`

	ChargesEnabled   bool `json:"charges_enabled" gorm:"default:false"`
	PayoutsEnabled   bool `json:"payouts_enabled" gorm:"default:false"`
	DetailsSubmitted bool `json:"details_submitted" gorm:"default:false"`

	// Requirements is the gateway's outstanding-requirements list,
	// stored as a JSON array of strings.
	Requirements datatypes.JSON `json:"requirements"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID"`
}

// PayoutCapable reports whether transfers to this account can succeed.
func (a *PayoutAccount) PayoutCapable() bool {
	return a.PayoutsEnabled && a.DetailsSubmitted
}

// Transfer Status on a Payout record.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"
	TransferPaid       TransferStatus = "paid"
	TransferFailed     TransferStatus = "failed"
)

// Payout is one transfer of an owner's share to their account.
// Immutable once Status is paid.
type Payout struct {
	gorm.Model
	PayoutAccountID uint `json:"payout_account_id" gorm:"index;not null"`
	OwnerID         uint `json:"owner_id" gorm:"index;not null"`

	StripeTransferID string `json:"stripe_transfer_id" gorm:"index"`
	IdempotencyKey   string `json:"idempotency_key" gorm:"uniqueIndex;not null"`

	Amount   float64        `json:"amount" gorm:"not null"`
	Currency Currency       `json:"currency" gorm:"not null;default:'USD'"`
	Status   TransferStatus `json:"status" gorm:"not null;default:'pending'"`

	// ReservationIDs is the JSON array of reservation ids this payout
	// covers.
	ReservationIDs datatypes.JSON `json:"reservation_ids"`

	FailureCode    string     `json:"failure_code,omitempty"`
	FailureMessage string     `json:"failure_message,omitempty"`
	RetryCount     int        `json:"retry_count" gorm:"default:0"`
	ArrivalDate    *time.Time `json:"arrival_date,omitempty"`

	PayoutAccount PayoutAccount `json:"-" gorm:"foreignKey:PayoutAccountID"`
}

// CommissionOverride supersedes the platform default rate for one
// owner. Resolved at calculation time, never cached on the listing.
type CommissionOverride struct {
	gorm.Model
	OwnerID uint `json:"owner_id" gorm:"uniqueIndex;not null"`
	Percent int  `json:"percent" gorm:"not null"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID"`
}
