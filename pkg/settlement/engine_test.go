package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/gateway"
)

// fakeStore keeps everything in memory and mirrors the predicate the
// GORM store applies in SQL.
type fakeStore struct {
	reservations map[uint]*model.Reservation
	accounts     map[uint]*model.PayoutAccount
	payouts      []*model.Payout
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: map[uint]*model.Reservation{},
		accounts:     map[uint]*model.PayoutAccount{},
	}
}

func (s *fakeStore) PayableReservations() ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.PayoutEligible() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) ClaimReservation(id uint) (bool, error) {
	r, ok := s.reservations[id]
	if !ok || !r.PayoutEligible() {
		return false, nil
	}
	r.PayoutStatus = model.PayoutProcessing
	return true, nil
}

func (s *fakeStore) SetPayoutStatus(id uint, status model.PayoutStatus, heldReason string) error {
	r, ok := s.reservations[id]
	if !ok {
		return errors.New("no such reservation")
	}
	r.PayoutStatus = status
	r.HeldReason = heldReason
	return nil
}

func (s *fakeStore) RecordPayoutFailure(id uint) error {
	r, ok := s.reservations[id]
	if !ok {
		return errors.New("no such reservation")
	}
	r.PayoutStatus = model.PayoutFailed
	r.HeldReason = ""
	r.PayoutAttempts++
	return nil
}

func (s *fakeStore) ReservationByID(id uint) (*model.Reservation, error) {
	return s.reservations[id], nil
}

func (s *fakeStore) AccountForOwner(ownerID uint) (*model.PayoutAccount, error) {
	return s.accounts[ownerID], nil
}

func (s *fakeStore) CreatePayout(p *model.Payout) error {
	p.ID = uint(len(s.payouts) + 1)
	p.UpdatedAt = time.Now()
	s.payouts = append(s.payouts, p)
	return nil
}

func (s *fakeStore) PayoutByTransferID(transferID string) (*model.Payout, error) {
	for _, p := range s.payouts {
		if p.StripeTransferID == transferID {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) MarkPayoutPaid(id uint, arrival time.Time) error {
	for _, p := range s.payouts {
		if p.ID == id {
			p.Status = model.TransferPaid
			p.ArrivalDate = &arrival
			return nil
		}
	}
	return errors.New("no such payout")
}

func (s *fakeStore) MarkPayoutFailed(id uint, code, message string) error {
	for _, p := range s.payouts {
		if p.ID == id {
			p.Status = model.TransferFailed
			p.FailureCode = code
			p.FailureMessage = message
			return nil
		}
	}
	return errors.New("no such payout")
}

func (s *fakeStore) FailedPayoutsSince(cutoff time.Time) ([]model.Payout, error) {
	var out []model.Payout
	for _, p := range s.payouts {
		if p.Status == model.TransferFailed && p.RetryCount == 0 && !p.UpdatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkPayoutRetried(id uint) error {
	for _, p := range s.payouts {
		if p.ID == id {
			p.RetryCount++
			return nil
		}
	}
	return errors.New("no such payout")
}

func (s *fakeStore) ReleaseHeld(ownerID uint) (int64, error) {
	var n int64
	for _, r := range s.reservations {
		if r.Listing.OwnerID == ownerID && r.PayoutStatus == model.PayoutHeld {
			r.PayoutStatus = model.PayoutPending
			r.HeldReason = ""
			n++
		}
	}
	return n, nil
}

// fakeGateway records transfer calls and fails on demand.
type fakeGateway struct {
	transferErr error
	status      *gateway.AccountStatus
	calls       []string
}

func (g *fakeGateway) CreateAccount(string) (string, error) { return "acct_test", nil }

func (g *fakeGateway) GetAccountStatus(string) (*gateway.AccountStatus, error) {
	if g.status == nil {
		return &gateway.AccountStatus{PayoutsEnabled: true, DetailsSubmitted: true}, nil
	}
	return g.status, nil
}

func (g *fakeGateway) CreateTransfer(accountID string, amount float64, currency, reference, key string) (*gateway.TransferResult, error) {
	g.calls = append(g.calls, reference)
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	return &gateway.TransferResult{TransferID: "tr_" + reference, Paid: true}, nil
}

func (g *fakeGateway) RetrieveBalance(string) (*gateway.Balance, error) {
	return &gateway.Balance{}, nil
}

type capturingPublisher struct {
	queues []string
}

func (p *capturingPublisher) Publish(queue string, _ interface{}) error {
	p.queues = append(p.queues, queue)
	return nil
}

func payableReservation(id, ownerID uint) *model.Reservation {
	r := &model.Reservation{
		Reference:      "res-1",
		ListingID:      1,
		Status:         model.ReservationCompleted,
		PaymentStatus:  model.PaymentPaid,
		GrossAmount:    100,
		OwnerAmount:    80,
		PlatformAmount: 20,
		Listing:        model.Listing{OwnerID: ownerID, Currency: model.CurrencyUSD},
	}
	r.ID = id
	return r
}

func capableAccount(ownerID uint) *model.PayoutAccount {
	a := &model.PayoutAccount{
		OwnerID:          ownerID,
		StripeAccountID:  "acct_capable",
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}
	a.ID = 10
	return a
}

func TestSweepSettlesPayableReservation(t *testing.T) {
	store := newFakeStore()
	store.reservations[1] = payableReservation(1, 7)
	store.accounts[7] = capableAccount(7)
	gw := &fakeGateway{}
	pub := &capturingPublisher{}

	engine := NewEngine(store, gw, pub)
	stats := engine.RunSweep()

	assert.Equal(t, 1, stats.Settled)
	require.Len(t, store.payouts, 1)
	assert.Equal(t, model.TransferPaid, store.payouts[0].Status)
	assert.Equal(t, 80.0, store.payouts[0].Amount)
	assert.Equal(t, model.PayoutPaid, store.reservations[1].PayoutStatus)

	ids, err := DecodeReservationIDs(store.payouts[0].ReservationIDs)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)
	assert.Contains(t, pub.queues, "payout.paid")
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.reservations[1] = payableReservation(1, 7)
	store.accounts[7] = capableAccount(7)
	gw := &fakeGateway{}

	engine := NewEngine(store, gw, &capturingPublisher{})
	engine.RunSweep()
	engine.RunSweep()

	assert.Len(t, store.payouts, 1, "second sweep must not create another payout")
	assert.Len(t, gw.calls, 1, "second sweep must not call the gateway again")
}

func TestSweepHoldsWithoutCapableAccount(t *testing.T) {
	store := newFakeStore()
	store.reservations[1] = payableReservation(1, 7)
	// owner 7 has no account at all

	engine := NewEngine(store, &fakeGateway{}, &capturingPublisher{})
	stats := engine.RunSweep()

	assert.Equal(t, 1, stats.Held)
	assert.Equal(t, model.PayoutHeld, store.reservations[1].PayoutStatus)
	assert.Equal(t, "owner has no payout account", store.reservations[1].HeldReason)
	assert.Empty(t, store.payouts)

	// Not-yet-capable account holds with a different reason.
	store.reservations[2] = payableReservation(2, 8)
	account := capableAccount(8)
	account.PayoutsEnabled = false
	store.accounts[8] = account

	engine.RunSweep()
	assert.Equal(t, model.PayoutHeld, store.reservations[2].PayoutStatus)
	assert.Equal(t, "payout account not yet capable", store.reservations[2].HeldReason)
}

func TestSweepLeavesTransientErrorsRetryable(t *testing.T) {
	store := newFakeStore()
	store.reservations[1] = payableReservation(1, 7)
	store.accounts[7] = capableAccount(7)
	gw := &fakeGateway{transferErr: &stripe.Error{Type: stripe.ErrorTypeAPI}}

	engine := NewEngine(store, gw, &capturingPublisher{})
	stats := engine.RunSweep()

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, model.PayoutPending, store.reservations[1].PayoutStatus)
	assert.Empty(t, store.payouts, "transient errors must not produce payout records")

	// Gateway recovers, next sweep settles.
	gw.transferErr = nil
	engine.RunSweep()
	assert.Equal(t, model.PayoutPaid, store.reservations[1].PayoutStatus)
	assert.Len(t, store.payouts, 1)
}

func TestSweepRecordsPermanentFailureAndRetriesOnce(t *testing.T) {
	store := newFakeStore()
	store.reservations[1] = payableReservation(1, 7)
	store.accounts[7] = capableAccount(7)
	gw := &fakeGateway{transferErr: &stripe.Error{
		Type: stripe.ErrorTypeInvalidRequest,
		Code: stripe.ErrorCodeAccountInvalid,
	}}
	pub := &capturingPublisher{}

	engine := NewEngine(store, gw, pub)
	stats := engine.RunSweep()

	assert.Equal(t, 1, stats.Failed)
	require.Len(t, store.payouts, 1)
	assert.Equal(t, model.TransferFailed, store.payouts[0].Status)
	assert.Equal(t, string(stripe.ErrorCodeAccountInvalid), store.payouts[0].FailureCode)
	assert.Contains(t, pub.queues, "payout.failed")
	// The retry pass in the same sweep already requeued it.
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, model.PayoutPending, store.reservations[1].PayoutStatus)

	// Second sweep fails again; the payout was already retried once so
	// the reservation stays failed for administrators.
	stats = engine.RunSweep()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Retried)
	assert.Equal(t, model.PayoutFailed, store.reservations[1].PayoutStatus)
	assert.Len(t, store.payouts, 2)
}

func TestCancelledNonRefundPathSettles(t *testing.T) {
	store := newFakeStore()
	r := payableReservation(1, 7)
	r.Status = model.ReservationCancelled
	r.PayoutStatus = model.PayoutPending // queued by the late-cancel path
	store.reservations[1] = r
	store.accounts[7] = capableAccount(7)

	engine := NewEngine(store, &fakeGateway{}, &capturingPublisher{})
	stats := engine.RunSweep()

	assert.Equal(t, 1, stats.Settled)
	assert.Equal(t, model.PayoutPaid, store.reservations[1].PayoutStatus)

	// A refunded cancellation is never selected.
	refunded := payableReservation(2, 7)
	refunded.Status = model.ReservationCancelled
	refunded.PaymentStatus = model.PaymentRefunded
	store.reservations[2] = refunded
	stats = engine.RunSweep()
	assert.Equal(t, 0, stats.Settled)
}

func TestConfirmTransferFinalizesProcessingPayout(t *testing.T) {
	store := newFakeStore()
	r := payableReservation(1, 7)
	r.PayoutStatus = model.PayoutProcessing
	store.reservations[1] = r

	payout := &model.Payout{
		OwnerID:          7,
		StripeTransferID: "tr_async",
		Amount:           80,
		Status:           model.TransferProcessing,
		ReservationIDs:   reservationIDsJSON(1),
	}
	require.NoError(t, store.CreatePayout(payout))

	pub := &capturingPublisher{}
	engine := NewEngine(store, &fakeGateway{}, pub)

	arrival := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, engine.ConfirmTransfer("tr_async", arrival))

	assert.Equal(t, model.TransferPaid, payout.Status)
	require.NotNil(t, payout.ArrivalDate)
	assert.Equal(t, arrival, *payout.ArrivalDate)
	assert.Equal(t, model.PayoutPaid, store.reservations[1].PayoutStatus)
	assert.Equal(t, []string{"payout.paid"}, pub.queues)

	// A replayed callback records nothing new.
	require.NoError(t, engine.ConfirmTransfer("tr_async", arrival))
	assert.Equal(t, []string{"payout.paid"}, pub.queues)

	// Callbacks for transfers that are not ours are ignored.
	require.NoError(t, engine.ConfirmTransfer("tr_unknown", arrival))
}

func TestRevertTransferFailsPayoutAndReservations(t *testing.T) {
	store := newFakeStore()
	r := payableReservation(1, 7)
	r.PayoutStatus = model.PayoutPaid
	store.reservations[1] = r

	payout := &model.Payout{
		OwnerID:          7,
		StripeTransferID: "tr_reversed",
		Amount:           80,
		Status:           model.TransferPaid,
		ReservationIDs:   reservationIDsJSON(1),
	}
	require.NoError(t, store.CreatePayout(payout))

	pub := &capturingPublisher{}
	engine := NewEngine(store, &fakeGateway{}, pub)

	require.NoError(t, engine.RevertTransfer("tr_reversed", "transfer_reversed", "transfer reversed by the gateway"))

	assert.Equal(t, model.TransferFailed, payout.Status)
	assert.Equal(t, "transfer_reversed", payout.FailureCode)
	assert.Equal(t, model.PayoutFailed, store.reservations[1].PayoutStatus)
	assert.Equal(t, 1, store.reservations[1].PayoutAttempts)
	assert.Equal(t, []string{"payout.failed"}, pub.queues)

	// A replayed reversal does not take another attempt.
	require.NoError(t, engine.RevertTransfer("tr_reversed", "transfer_reversed", "transfer reversed by the gateway"))
	assert.Equal(t, 1, store.reservations[1].PayoutAttempts)
}

func TestReleaserReleasesOnCapabilityTransition(t *testing.T) {
	store := newFakeStore()
	held := payableReservation(1, 7)
	held.PayoutStatus = model.PayoutHeld
	held.HeldReason = "payout account not yet capable"
	store.reservations[1] = held

	account := capableAccount(7)
	account.PayoutsEnabled = false // stored flags say not capable yet
	gw := &fakeGateway{status: &gateway.AccountStatus{
		AccountID:        account.StripeAccountID,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}}

	releaser := NewReleaser(store, gw)
	status, released, err := releaser.SyncAccount(account)
	require.NoError(t, err)
	assert.True(t, status.PayoutCapable())
	assert.EqualValues(t, 1, released)
	assert.Equal(t, model.PayoutPending, store.reservations[1].PayoutStatus)
	assert.True(t, account.PayoutsEnabled)

	// Already-capable accounts do not re-release.
	_, released, err = releaser.SyncAccount(account)
	require.NoError(t, err)
	assert.Zero(t, released)
}
