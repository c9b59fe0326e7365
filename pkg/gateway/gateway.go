// Package gateway wraps the payment processor. The settlement engine
// and controllers talk to the PaymentGateway interface; Stripe is the
// production implementation.
package gateway

// AccountStatus mirrors the gateway's view of an owner account.
type AccountStatus struct {
	AccountID        string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Requirements     []string
}

// PayoutCapable reports whether a transfer to the account can succeed.
func (s *AccountStatus) PayoutCapable() bool {
	return s.PayoutsEnabled && s.DetailsSubmitted
}

// TransferResult is the immediate outcome of creating a transfer.
type TransferResult struct {
	TransferID string
	// Paid is true when the gateway settled the transfer synchronously;
	// otherwise the status arrives via webhook.
	Paid bool
}

// Balance is the owner account's gateway balance in major units.
type Balance struct {
	Available float64
	Pending   float64
	Currency  string
}

// PaymentGateway is the remote collaborator. Every call is fallible
// blocking I/O; callers must isolate failures per unit of work.
type PaymentGateway interface {
	CreateAccount(email string) (string, error)
	GetAccountStatus(accountID string) (*AccountStatus, error)
	// CreateTransfer moves amount (major units) to the account. The
	// reference tags the transfer for idempotent correlation with a
	// reservation; the idempotency key dedupes retries gateway-side.
	CreateTransfer(accountID string, amount float64, currency, reference, idempotencyKey string) (*TransferResult, error)
	RetrieveBalance(accountID string) (*Balance, error)
}
