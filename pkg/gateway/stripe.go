package gateway

import (
	"math"
	"os"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/account"
	"github.com/stripe/stripe-go/v74/balance"
	"github.com/stripe/stripe-go/v74/transfer"
)

// StripeGateway implements PaymentGateway on Stripe Connect.
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &StripeGateway{}
}

func (g *StripeGateway) CreateAccount(email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}

	acct, err := account.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

func (g *StripeGateway) GetAccountStatus(accountID string) (*AccountStatus, error) {
	acct, err := account.GetByID(accountID, nil)
	if err != nil {
		return nil, err
	}

	status := &AccountStatus{
		AccountID:        acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
	if acct.Requirements != nil {
		status.Requirements = acct.Requirements.CurrentlyDue
	}
	return status, nil
}

func (g *StripeGateway) CreateTransfer(accountID string, amount float64, currency, reference, idempotencyKey string) (*TransferResult, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(strings.ToLower(currency)),
		Destination:   stripe.String(accountID),
		TransferGroup: stripe.String(reference),
	}
	params.AddMetadata("reservation_reference", reference)
	params.SetIdempotencyKey(idempotencyKey)

	tr, err := transfer.New(params)
	if err != nil {
		return nil, err
	}

	// Transfers to a connected balance settle immediately; the payout
	// from that balance to the bank reports later via webhook.
	return &TransferResult{TransferID: tr.ID, Paid: !tr.Reversed}, nil
}

func (g *StripeGateway) RetrieveBalance(accountID string) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.SetStripeAccount(accountID)

	bal, err := balance.Get(params)
	if err != nil {
		return nil, err
	}

	result := &Balance{}
	if len(bal.Available) > 0 {
		result.Available = fromMinorUnits(bal.Available[0].Amount)
		result.Currency = strings.ToUpper(string(bal.Available[0].Currency))
	}
	if len(bal.Pending) > 0 {
		result.Pending = fromMinorUnits(bal.Pending[0].Amount)
	}
	return result, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(v int64) float64 {
	return float64(v) / 100
}

// IsTransient splits gateway failures into retryable and permanent.
// Network errors, rate limits and 5xx responses are retryable; card
// or request errors (declined, account restricted) are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stripeErr, ok := err.(*stripe.Error); ok {
		switch stripeErr.Type {
		case stripe.ErrorTypeAPI:
			return true
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return false
		}
		return stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429
	}
	// Anything that never reached Stripe (DNS, timeouts) is transient.
	return true
}

// FailureCode extracts the gateway's machine-readable failure code,
// empty for non-Stripe errors.
func FailureCode(err error) string {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return string(stripeErr.Code)
	}
	return ""
}
