package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/config"
)

func testListing(granularity int, price float64) *model.Listing {
	return &model.Listing{
		OpenMinute:   540,  // 9:00 AM
		CloseMinute:  1020, // 5:00 PM
		Granularity:  granularity,
		PricePerSlot: price,
	}
}

func TestGrossFor(t *testing.T) {
	listing := testListing(60, 50)

	assert.Equal(t, 50.0, GrossFor(listing, 600, 660))
	assert.Equal(t, 100.0, GrossFor(listing, 600, 720))

	half := testListing(30, 12.50)
	assert.Equal(t, 37.5, GrossFor(half, 600, 690))
}

func TestValidateWindowBounds(t *testing.T) {
	listing := testListing(60, 50)

	assert.NoError(t, validateWindow(listing, 540, 600))
	assert.NoError(t, validateWindow(listing, 960, 1020))

	assert.ErrorIs(t, validateWindow(listing, 480, 600), ErrOutsideHours)
	assert.ErrorIs(t, validateWindow(listing, 960, 1080), ErrOutsideHours)
}

func TestRescheduleCapRejectsFourthMove(t *testing.T) {
	consumer := &model.User{Model: gorm.Model{ID: 5}, Role: model.RoleConsumer}
	reservation := &model.Reservation{
		ConsumerID:      5,
		Status:          model.ReservationPending,
		RescheduleCount: model.MaxReschedules,
		Listing:         *testListing(60, 50),
	}

	// The cap fires before any conflict check or pricing, no matter how
	// far out the new date is.
	far := time.Now().AddDate(0, 0, 30)
	err := Reschedule(nil, config.BookingConfig{}, reservation, consumer, far, 600, 660)
	assert.ErrorIs(t, err, ErrRescheduleLimit)

	reservation.Status = model.ReservationConfirmed
	err = Reschedule(nil, config.BookingConfig{}, reservation, consumer, far, 600, 660)
	assert.ErrorIs(t, err, ErrRescheduleLimit)

	// One move below the cap gets past the guard to the window checks.
	reservation.RescheduleCount = model.MaxReschedules - 1
	err = Reschedule(nil, config.BookingConfig{}, reservation, consumer, far, 480, 540)
	assert.ErrorIs(t, err, ErrOutsideHours)
}

func TestValidateWindowShape(t *testing.T) {
	listing := testListing(60, 50)

	assert.Error(t, validateWindow(listing, 600, 600))
	assert.Error(t, validateWindow(listing, 660, 600))

	// Duration must be a whole number of slots.
	assert.Error(t, validateWindow(listing, 600, 690))
	assert.NoError(t, validateWindow(listing, 600, 720))
}
