package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/config"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/timeutil"
)

// InitCompletionSweep marks elapsed reservations completed every 30
// minutes. The settlement sweep also runs it first, so completions are
// never more than one settlement cycle behind.
func InitCompletionSweep(cfg config.BookingConfig) {
	c := cron.New()

	_, err := c.AddFunc("*/30 * * * *", func() {
		RunCompletionSweep(cfg)
	})

	if err != nil {
		log.Printf("Could not initialize completion sweep cron: %v", err)
		return
	}

	c.Start()
}

// RunCompletionSweep completes every confirmed reservation whose
// scheduled end has passed. Failures are isolated per reservation.
func RunCompletionSweep(cfg config.BookingConfig) {
	db := database.GetDB()
	now := time.Now().UTC()
	today := timeutil.DateOnly(now)
	nowMinute := now.Hour()*60 + now.Minute()

	var elapsed []model.Reservation
	err := db.Preload("Listing").
		Where("status = ?", model.ReservationConfirmed).
		Where("date < ? OR (date = ? AND end_minute <= ?)", today, today, nowMinute).
		Find(&elapsed).Error
	if err != nil {
		log.Printf("completion sweep: query failed: %v", err)
		return
	}

	completed := 0
	for _, r := range elapsed {
		reservation := r
		if err := booking.Complete(db, cfg, &reservation, nil); err != nil {
			log.Printf("completion sweep: reservation %s: %v", reservation.Reference, err)
			continue
		}
		completed++
	}

	if completed > 0 {
		log.Printf("completion sweep: marked %d reservations completed", completed)
	}
}
