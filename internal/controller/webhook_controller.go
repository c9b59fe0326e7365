package controller

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74/webhook"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/database"
)

// HandleStripeWebhook keeps local state in sync with the gateway:
// payment intents mark reservations paid, account updates refresh
// payout capability (releasing held payouts on the flip), and transfer
// callbacks finalize payouts in both directions: settled transfers
// move processing payouts to paid, reversals push them onto the
// failure path.
func HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), webhookSecret)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid webhook signature")
	}

	log.Printf("webhook: processing %s", event.Type)

	switch event.Type {
	case "payment_intent.succeeded", "checkout.session.completed":
		var data struct {
			Metadata struct {
				ReservationReference string `json:"reservation_reference"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if data.Metadata.ReservationReference == "" {
			break
		}

		if err := database.DB.Model(&model.Reservation{}).
			Where("reference = ? AND payment_status = ?", data.Metadata.ReservationReference, model.PaymentUnpaid).
			Update("payment_status", model.PaymentPaid).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "Could not mark reservation paid")
		}

	case "account.updated":
		var data struct {
			ID               string `json:"id"`
			ChargesEnabled   bool   `json:"charges_enabled"`
			PayoutsEnabled   bool   `json:"payouts_enabled"`
			DetailsSubmitted bool   `json:"details_submitted"`
			Requirements     struct {
				CurrentlyDue []string `json:"currently_due"`
			} `json:"requirements"`
		}
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}

		var account model.PayoutAccount
		if err := database.DB.Where("stripe_account_id = ?", data.ID).First(&account).Error; err != nil {
			// Not one of ours; acknowledge so the gateway stops
			// redelivering.
			break
		}

		wasCapable := account.PayoutCapable()
		account.ChargesEnabled = data.ChargesEnabled
		account.PayoutsEnabled = data.PayoutsEnabled
		account.DetailsSubmitted = data.DetailsSubmitted
		if raw, err := json.Marshal(data.Requirements.CurrentlyDue); err == nil {
			account.Requirements = raw
		}
		if err := database.DB.Save(&account).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "Could not update payout account")
		}

		if !wasCapable && account.PayoutCapable() {
			released, err := releaser.Release(account.OwnerID)
			if err != nil {
				log.Printf("webhook: release for owner %d failed: %v", account.OwnerID, err)
			} else if released > 0 {
				log.Printf("webhook: released %d held payouts for owner %d", released, account.OwnerID)
			}
		}

	case "transfer.paid", "transfer.updated":
		var data struct {
			ID       string `json:"id"`
			Reversed bool   `json:"reversed"`
		}
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if data.Reversed {
			break
		}

		arrival := time.Unix(event.Created, 0).UTC()
		if err := sengine.ConfirmTransfer(data.ID, arrival); err != nil {
			log.Printf("webhook: confirm transfer %s: %v", data.ID, err)
			return fail(c, fiber.StatusInternalServerError, "Could not update payout")
		}

	case "transfer.reversed":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}

		if err := sengine.RevertTransfer(data.ID, "transfer_reversed", "transfer reversed by the gateway"); err != nil {
			log.Printf("webhook: revert transfer %s: %v", data.ID, err)
			return fail(c, fiber.StatusInternalServerError, "Could not update payout")
		}
	}

	return c.SendStatus(fiber.StatusOK)
}
