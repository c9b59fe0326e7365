// Package settlement converts payable reservations into owner
// transfers through the payment gateway. Each reservation settles at
// most once: the payout status on the row is the claim flag, and a
// claim is only taken after re-reading the row.
package settlement

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/events"
	"slotmarket_backend/pkg/gateway"
)

// DefaultRetryWindow bounds how far back failed payouts are retried
// before they are left for administrators.
const DefaultRetryWindow = 24 * time.Hour

// Engine runs the periodic settlement sweep.
type Engine struct {
	Store       Store
	Gateway     gateway.PaymentGateway
	Publisher   events.Publisher
	RetryWindow time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

func NewEngine(store Store, gw gateway.PaymentGateway, pub events.Publisher) *Engine {
	return &Engine{
		Store:       store,
		Gateway:     gw,
		Publisher:   pub,
		RetryWindow: DefaultRetryWindow,
		Now:         time.Now,
	}
}

// SweepStats summarizes one settlement pass.
type SweepStats struct {
	Examined int
	Settled  int
	Held     int
	Failed   int
	Retried  int
	Errors   int
}

// RunSweep settles every payable reservation. A failure on one
// reservation never aborts the rest. The retry pass afterwards
// re-queues recent failures so the next sweep attempts them again.
func (e *Engine) RunSweep() SweepStats {
	var stats SweepStats

	reservations, err := e.Store.PayableReservations()
	if err != nil {
		log.Printf("settlement: could not select payable reservations: %v", err)
		stats.Errors++
		return stats
	}

	for _, r := range reservations {
		stats.Examined++
		switch outcome, err := e.settleOne(&r); {
		case err != nil:
			log.Printf("settlement: reservation %s: %v", r.Reference, err)
			stats.Errors++
		case outcome == outcomeSettled:
			stats.Settled++
		case outcome == outcomeHeld:
			stats.Held++
		case outcome == outcomeFailed:
			stats.Failed++
		}
	}

	retried, err := e.RetryFailed()
	if err != nil {
		log.Printf("settlement: retry pass: %v", err)
		stats.Errors++
	}
	stats.Retried = retried

	return stats
}

type settleOutcome int

const (
	outcomeSkipped settleOutcome = iota
	outcomeSettled
	outcomeHeld
	outcomeFailed
)

func (e *Engine) settleOne(r *model.Reservation) (settleOutcome, error) {
	account, err := e.Store.AccountForOwner(r.Listing.OwnerID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("load payout account: %w", err)
	}

	if account == nil || !account.PayoutCapable() {
		reason := "owner has no payout account"
		if account != nil {
			reason = "payout account not yet capable"
		}
		if r.PayoutStatus == model.PayoutHeld {
			return outcomeHeld, nil
		}
		if err := e.Store.SetPayoutStatus(r.ID, model.PayoutHeld, reason); err != nil {
			return outcomeSkipped, fmt.Errorf("mark held: %w", err)
		}
		return outcomeHeld, nil
	}

	// Re-read and claim. Loses the race against a concurrent sweep or
	// a mid-flight cancellation that left the row unpayable.
	claimed, err := e.Store.ClaimReservation(r.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		return outcomeSkipped, nil
	}

	idempotencyKey := uuid.NewString()
	result, err := e.Gateway.CreateTransfer(
		account.StripeAccountID,
		r.OwnerAmount,
		string(r.Listing.Currency),
		r.Reference,
		idempotencyKey,
	)

	if err != nil {
		if gateway.IsTransient(err) {
			// Release the claim so the next sweep retries; no Payout
			// record is written for errors that never settled.
			if revertErr := e.Store.SetPayoutStatus(r.ID, model.PayoutPending, ""); revertErr != nil {
				return outcomeSkipped, fmt.Errorf("revert claim after transient error: %v (original: %w)", revertErr, err)
			}
			return outcomeSkipped, fmt.Errorf("transient gateway error, will retry: %w", err)
		}
		return e.recordFailure(r, account, idempotencyKey, err)
	}

	payout := &model.Payout{
		PayoutAccountID:  account.ID,
		OwnerID:          account.OwnerID,
		StripeTransferID: result.TransferID,
		IdempotencyKey:   idempotencyKey,
		Amount:           r.OwnerAmount,
		Currency:         r.Listing.Currency,
		Status:           model.TransferProcessing,
		ReservationIDs:   reservationIDsJSON(r.ID),
	}
	status := model.PayoutProcessing
	if result.Paid {
		payout.Status = model.TransferPaid
		status = model.PayoutPaid
	}

	if err := e.Store.CreatePayout(payout); err != nil {
		return outcomeSkipped, fmt.Errorf("persist payout after transfer %s: %w", result.TransferID, err)
	}
	if err := e.Store.SetPayoutStatus(r.ID, status, ""); err != nil {
		return outcomeSkipped, fmt.Errorf("update reservation after transfer %s: %w", result.TransferID, err)
	}

	if status == model.PayoutPaid {
		_ = e.Publisher.Publish(events.QueuePayoutPaid, map[string]interface{}{
			"reservation_reference": r.Reference,
			"owner_id":              account.OwnerID,
			"amount":                r.OwnerAmount,
			"transfer_id":           result.TransferID,
		})
	}
	return outcomeSettled, nil
}

// recordFailure persists a failed Payout carrying the gateway failure
// code and surfaces it to administrators.
func (e *Engine) recordFailure(r *model.Reservation, account *model.PayoutAccount, idempotencyKey string, cause error) (settleOutcome, error) {
	payout := &model.Payout{
		PayoutAccountID: account.ID,
		OwnerID:         account.OwnerID,
		IdempotencyKey:  idempotencyKey,
		Amount:          r.OwnerAmount,
		Currency:        r.Listing.Currency,
		Status:          model.TransferFailed,
		ReservationIDs:  reservationIDsJSON(r.ID),
		FailureCode:     gateway.FailureCode(cause),
		FailureMessage:  cause.Error(),
	}
	if err := e.Store.CreatePayout(payout); err != nil {
		return outcomeSkipped, fmt.Errorf("persist failed payout: %v (original: %w)", err, cause)
	}
	if err := e.Store.RecordPayoutFailure(r.ID); err != nil {
		return outcomeSkipped, fmt.Errorf("mark reservation failed: %v (original: %w)", err, cause)
	}

	_ = e.Publisher.Publish(events.QueuePayoutFailed, map[string]interface{}{
		"reservation_reference": r.Reference,
		"owner_id":              account.OwnerID,
		"amount":                r.OwnerAmount,
		"failure_code":          payout.FailureCode,
		"failure_message":       payout.FailureMessage,
	})
	return outcomeFailed, nil
}

// ConfirmTransfer applies a gateway callback reporting a transfer
// settled. The payout takes the reported arrival date, and when it was
// still processing its reservations flip to paid. Unknown transfer ids
// are ignored so replayed callbacks stay harmless.
func (e *Engine) ConfirmTransfer(transferID string, arrival time.Time) error {
	p, err := e.Store.PayoutByTransferID(transferID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	alreadyPaid := p.Status == model.TransferPaid
	if err := e.Store.MarkPayoutPaid(p.ID, arrival); err != nil {
		return err
	}
	if alreadyPaid {
		return nil
	}

	ids, err := DecodeReservationIDs(p.ReservationIDs)
	if err != nil {
		return fmt.Errorf("payout %d has unreadable reservation ids: %w", p.ID, err)
	}
	for _, id := range ids {
		if err := e.Store.SetPayoutStatus(id, model.PayoutPaid, ""); err != nil {
			return err
		}
	}

	_ = e.Publisher.Publish(events.QueuePayoutPaid, map[string]interface{}{
		"owner_id":    p.OwnerID,
		"amount":      p.Amount,
		"transfer_id": transferID,
	})
	return nil
}

// RevertTransfer applies a gateway callback reporting a transfer
// reversed after acceptance. The payout moves to failed and each
// covered reservation takes a failure attempt, feeding the normal
// retry pass.
func (e *Engine) RevertTransfer(transferID, code, message string) error {
	p, err := e.Store.PayoutByTransferID(transferID)
	if err != nil {
		return err
	}
	if p == nil || p.Status == model.TransferFailed {
		return nil
	}

	if err := e.Store.MarkPayoutFailed(p.ID, code, message); err != nil {
		return err
	}

	ids, err := DecodeReservationIDs(p.ReservationIDs)
	if err != nil {
		return fmt.Errorf("payout %d has unreadable reservation ids: %w", p.ID, err)
	}
	for _, id := range ids {
		if err := e.Store.RecordPayoutFailure(id); err != nil {
			return err
		}
	}

	_ = e.Publisher.Publish(events.QueuePayoutFailed, map[string]interface{}{
		"owner_id":        p.OwnerID,
		"amount":          p.Amount,
		"transfer_id":     transferID,
		"failure_code":    code,
		"failure_message": message,
	})
	return nil
}

// RetryFailed re-queues reservations behind recently failed payouts.
// Each failure is retried once inside the retry window; reservations
// that failed twice stay failed for administrators.
func (e *Engine) RetryFailed() (int, error) {
	window := e.RetryWindow
	if window <= 0 {
		window = DefaultRetryWindow
	}
	cutoff := e.Now().Add(-window)

	failed, err := e.Store.FailedPayoutsSince(cutoff)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, p := range failed {
		ids, err := DecodeReservationIDs(p.ReservationIDs)
		if err != nil {
			log.Printf("settlement: payout %d has unreadable reservation ids: %v", p.ID, err)
			continue
		}
		if err := e.Store.MarkPayoutRetried(p.ID); err != nil {
			log.Printf("settlement: could not mark payout %d retried: %v", p.ID, err)
			continue
		}
		for _, id := range ids {
			r, err := e.Store.ReservationByID(id)
			if err != nil || r == nil {
				log.Printf("settlement: could not load reservation %d for retry: %v", id, err)
				continue
			}
			if r.PayoutAttempts > 1 {
				continue
			}
			if err := e.Store.SetPayoutStatus(id, model.PayoutPending, ""); err != nil {
				log.Printf("settlement: could not requeue reservation %d: %v", id, err)
				continue
			}
			retried++
		}
	}
	return retried, nil
}

func reservationIDsJSON(ids ...uint) []byte {
	b, _ := json.Marshal(ids)
	return b
}

// DecodeReservationIDs parses the JSON id set stored on a Payout.
func DecodeReservationIDs(raw []byte) ([]uint, error) {
	var ids []uint
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
