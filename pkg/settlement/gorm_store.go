package settlement

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
)

// GormStore is the production Store backed by the shared database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) PayableReservations() ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := s.DB.Preload("Listing").
		Where("payment_status = ?", model.PaymentPaid).
		Where(
			s.DB.Where("status = ? AND payout_status IN ?", model.ReservationCompleted,
				[]model.PayoutStatus{model.PayoutNone, model.PayoutPending, model.PayoutHeld}).
				Or("status = ? AND payout_status IN ?", model.ReservationCancelled,
					[]model.PayoutStatus{model.PayoutPending, model.PayoutHeld}),
		).
		Order("date, start_minute").
		Find(&reservations).Error
	return reservations, err
}

// ClaimReservation is the conditional update that makes the sweep
// idempotent: the WHERE clause re-checks payability so a row already
// processing, paid, or cancelled-refunded is never claimed twice.
func (s *GormStore) ClaimReservation(id uint) (bool, error) {
	res := s.DB.Model(&model.Reservation{}).
		Where("id = ? AND payment_status = ?", id, model.PaymentPaid).
		Where("(status = ? AND payout_status IN ?) OR (status = ? AND payout_status IN ?)",
			model.ReservationCompleted,
			[]model.PayoutStatus{model.PayoutNone, model.PayoutPending, model.PayoutHeld},
			model.ReservationCancelled,
			[]model.PayoutStatus{model.PayoutPending, model.PayoutHeld}).
		Update("payout_status", model.PayoutProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) SetPayoutStatus(id uint, status model.PayoutStatus, heldReason string) error {
	return s.DB.Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payout_status": status,
			"held_reason":   heldReason,
		}).Error
}

func (s *GormStore) RecordPayoutFailure(id uint) error {
	return s.DB.Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payout_status":   model.PayoutFailed,
			"held_reason":     "",
			"payout_attempts": gorm.Expr("payout_attempts + 1"),
		}).Error
}

func (s *GormStore) ReservationByID(id uint) (*model.Reservation, error) {
	var r model.Reservation
	err := s.DB.First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) AccountForOwner(ownerID uint) (*model.PayoutAccount, error) {
	var account model.PayoutAccount
	err := s.DB.Where("owner_id = ?", ownerID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *GormStore) CreatePayout(p *model.Payout) error {
	return s.DB.Create(p).Error
}

func (s *GormStore) PayoutByTransferID(transferID string) (*model.Payout, error) {
	var p model.Payout
	err := s.DB.Where("stripe_transfer_id = ?", transferID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) MarkPayoutPaid(id uint, arrival time.Time) error {
	return s.DB.Model(&model.Payout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.TransferPaid,
			"arrival_date": arrival,
		}).Error
}

func (s *GormStore) MarkPayoutFailed(id uint, code, message string) error {
	return s.DB.Model(&model.Payout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.TransferFailed,
			"failure_code":    code,
			"failure_message": message,
		}).Error
}

func (s *GormStore) FailedPayoutsSince(cutoff time.Time) ([]model.Payout, error) {
	var payouts []model.Payout
	err := s.DB.Where("status = ? AND retry_count = 0 AND updated_at >= ?",
		model.TransferFailed, cutoff).
		Find(&payouts).Error
	return payouts, err
}

func (s *GormStore) MarkPayoutRetried(id uint) error {
	return s.DB.Model(&model.Payout{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (s *GormStore) ReleaseHeld(ownerID uint) (int64, error) {
	res := s.DB.Model(&model.Reservation{}).
		Where("payout_status = ?", model.PayoutHeld).
		Where("listing_id IN (?)", s.DB.Model(&model.Listing{}).Select("id").Where("owner_id = ?", ownerID)).
		Updates(map[string]interface{}{
			"payout_status": model.PayoutPending,
			"held_reason":   "",
		})
	return res.RowsAffected, res.Error
}
