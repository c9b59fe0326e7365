package settlement

import (
	"fmt"
	"log"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/gateway"
)

// Releaser moves an owner's held reservations back to pending once
// their payout account becomes capable, so the next settlement sweep
// picks them up. The release runs before any payout attempt for that
// owner; the claim flag on each reservation prevents double submission
// if a sweep is already mid-flight.
type Releaser struct {
	Store   Store
	Gateway gateway.PaymentGateway
}

func NewReleaser(store Store, gw gateway.PaymentGateway) *Releaser {
	return &Releaser{Store: store, Gateway: gw}
}

// SyncAccount refreshes the stored capability flags from the gateway
// and releases held payouts when the account transitioned from
// not-capable to capable. Returns the refreshed status and how many
// reservations were released.
func (rl *Releaser) SyncAccount(account *model.PayoutAccount) (*gateway.AccountStatus, int64, error) {
	status, err := rl.Gateway.GetAccountStatus(account.StripeAccountID)
	if err != nil {
		return nil, 0, fmt.Errorf("gateway status for account %s: %w", account.StripeAccountID, err)
	}

	wasCapable := account.PayoutCapable()
	account.ChargesEnabled = status.ChargesEnabled
	account.PayoutsEnabled = status.PayoutsEnabled
	account.DetailsSubmitted = status.DetailsSubmitted

	if !wasCapable && status.PayoutCapable() {
		released, err := rl.Store.ReleaseHeld(account.OwnerID)
		if err != nil {
			return status, 0, fmt.Errorf("release held payouts for owner %d: %w", account.OwnerID, err)
		}
		if released > 0 {
			log.Printf("settlement: released %d held payouts for owner %d", released, account.OwnerID)
		}
		return status, released, nil
	}
	return status, 0, nil
}

// Release force-releases an owner's held reservations without a
// gateway round-trip. Used by the webhook path, which already carries
// fresh capability flags, and by the admin surface.
func (rl *Releaser) Release(ownerID uint) (int64, error) {
	return rl.Store.ReleaseHeld(ownerID)
}
