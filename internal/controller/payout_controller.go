package controller

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/utils/jwt"
)

// OnboardPayoutAccount registers the owner with the payment gateway
// and stores the account row. Idempotent: a second call returns the
// existing account.
func OnboardPayoutAccount(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var existing model.PayoutAccount
	err := database.DB.Where("owner_id = ?", claims.UserID).First(&existing).Error
	if err == nil {
		return ok(c, existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, fiber.StatusInternalServerError, "Could not look up payout account")
	}

	accountID, err := payments.CreateAccount(claims.Email)
	if err != nil {
		return fail(c, fiber.StatusBadGateway, "Could not create gateway account")
	}

	account := model.PayoutAccount{
		OwnerID:         claims.UserID,
		StripeAccountID: accountID,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not save payout account")
	}

	return created(c, account)
}

// GetPayoutAccount refreshes the capability flags from the gateway.
// When the account just became payout-capable its held reservations
// are released in the same call.
func GetPayoutAccount(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var account model.PayoutAccount
	if err := database.DB.Where("owner_id = ?", claims.UserID).First(&account).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "No payout account; onboard first")
	}

	status, released, err := releaser.SyncAccount(&account)
	if err != nil {
		return fail(c, fiber.StatusBadGateway, "Could not refresh account status")
	}

	if raw, err := json.Marshal(status.Requirements); err == nil {
		account.Requirements = raw
	}
	if err := database.DB.Save(&account).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not save payout account")
	}

	return ok(c, fiber.Map{
		"account":        account,
		"payout_capable": account.PayoutCapable(),
		"released":       released,
	})
}

// GetEarnings sums the owner's share across the payout pipeline and
// attaches the live gateway balance when an account exists.
func GetEarnings(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	type bucket struct {
		PayoutStatus model.PayoutStatus `json:"payout_status"`
		Total        float64            `json:"total"`
		Count        int64              `json:"count"`
	}
	var buckets []bucket
	if err := database.DB.Model(&model.Reservation{}).
		Select("reservations.payout_status, COALESCE(SUM(reservations.owner_amount), 0) AS total, COUNT(*) AS count").
		Joins("JOIN listings ON listings.id = reservations.listing_id").
		Where("listings.owner_id = ? AND reservations.payment_status = ? AND reservations.payout_status <> ''",
			claims.UserID, model.PaymentPaid).
		Group("reservations.payout_status").
		Scan(&buckets).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not compute earnings")
	}

	result := fiber.Map{"buckets": buckets}

	var account model.PayoutAccount
	if err := database.DB.Where("owner_id = ?", claims.UserID).First(&account).Error; err == nil {
		if balance, err := payments.RetrieveBalance(account.StripeAccountID); err == nil {
			result["gateway_balance"] = balance
		}
	}

	return ok(c, result)
}

// ListMyPayouts returns the owner's transfer history, newest first.
func ListMyPayouts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var payouts []model.Payout
	if err := database.DB.Where("owner_id = ?", claims.UserID).
		Order("created_at DESC").Find(&payouts).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch payouts")
	}
	return ok(c, payouts)
}
