package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"slotmarket_backend/pkg/database"
)

type ownerEarnings struct {
	OwnerID       uint
	OwnerEmail    string
	PaidOut       float64
	PlatformShare float64
	GrossTotal    float64
	Reservations  int64
	Mismatches    int64
}

// InitEarningsReconciliation aggregates the previous day's paid-out
// reservations per owner every morning and flags rows whose stored
// amounts no longer sum to the gross price.
func InitEarningsReconciliation() {
	c := cron.New()

	_, err := c.AddFunc("0 6 * * *", func() {
		reconcileEarnings(time.Now().AddDate(0, 0, -1))
	})

	if err != nil {
		log.Printf("Could not initialize earnings reconciliation cron: %v", err)
		return
	}

	c.Start()
}

func reconcileEarnings(since time.Time) {
	log.Println("Reconciling owner earnings...")

	var rows []ownerEarnings
	err := database.GetDB().Raw(`
        SELECT
            u.id as owner_id,
            u.email as owner_email,
            COALESCE(SUM(r.owner_amount), 0) as paid_out,
            COALESCE(SUM(r.platform_amount), 0) as platform_share,
            COALESCE(SUM(r.gross_amount), 0) as gross_total,
            COUNT(r.id) as reservations,
            COUNT(r.id) FILTER (
                WHERE ABS(r.owner_amount + r.platform_amount - r.gross_amount) > 0.01
            ) as mismatches
        FROM users u
        JOIN listings l ON l.owner_id = u.id
        JOIN reservations r ON r.listing_id = l.id
        WHERE r.payout_status = 'paid' AND r.updated_at >= ?
        GROUP BY u.id
    `, since).Scan(&rows).Error

	if err != nil {
		log.Printf("Error reconciling earnings: %v", err)
		return
	}

	for _, row := range rows {
		if row.Mismatches > 0 {
			log.Printf("RECONCILIATION MISMATCH: owner %d (%s) has %d reservations whose amounts do not sum to gross",
				row.OwnerID, row.OwnerEmail, row.Mismatches)
			continue
		}
		log.Printf("Reconciled owner %d (%s): %d reservations, %.2f paid out, %.2f platform share",
			row.OwnerID, row.OwnerEmail, row.Reservations, row.PaidOut, row.PlatformShare)
	}
}
