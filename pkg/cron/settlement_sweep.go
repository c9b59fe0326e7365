package cron

import (
	"log"

	"github.com/robfig/cron/v3"

	"slotmarket_backend/pkg/config"
	"slotmarket_backend/pkg/settlement"
)

// InitSettlementSweep runs the settlement engine hourly. The
// completion sweep runs first inside the same tick: settlement selects
// completed reservations, so the two are ordered dependencies.
func InitSettlementSweep(engine *settlement.Engine, cfg config.BookingConfig) {
	c := cron.New()

	_, err := c.AddFunc("0 * * * *", func() {
		RunCompletionSweep(cfg)

		stats := engine.RunSweep()
		log.Printf("settlement sweep: examined=%d settled=%d held=%d failed=%d retried=%d errors=%d",
			stats.Examined, stats.Settled, stats.Held, stats.Failed, stats.Retried, stats.Errors)
	})

	if err != nil {
		log.Printf("Could not initialize settlement sweep cron: %v", err)
		return
	}

	c.Start()
}
