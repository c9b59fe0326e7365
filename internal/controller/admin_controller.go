package controller

import (
	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/commission"
	"slotmarket_backend/pkg/database"
)

// ApproveListing flips a listing's approval flag. Admin only.
func ApproveListing(c *fiber.Ctx) error {
	var listing model.Listing
	if err := database.DB.First(&listing, "id = ?", c.Params("id")).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	approved := c.QueryBool("approved", true)
	if err := database.DB.Model(&listing).Update("is_approved", approved).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not update listing")
	}
	listing.IsApproved = approved

	return ok(c, listing)
}

type CommissionOverrideInput struct {
	OwnerID uint `json:"owner_id" validate:"required"`
	Percent int  `json:"percent" validate:"required"`
}

// SetCommissionOverride upserts a per-owner commission rate.
func SetCommissionOverride(c *fiber.Ctx) error {
	input := new(CommissionOverrideInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}
	if !commission.ValidRate(input.Percent) {
		return fail(c, fiber.StatusBadRequest, "percent must be between 1 and 50")
	}

	var owner model.User
	if err := database.DB.First(&owner, "id = ? AND role = ?", input.OwnerID, model.RoleOwner).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Owner not found")
	}

	var override model.CommissionOverride
	err := database.DB.Where("owner_id = ?", input.OwnerID).First(&override).Error
	if err == nil {
		override.Percent = input.Percent
		err = database.DB.Save(&override).Error
	} else {
		override = model.CommissionOverride{OwnerID: input.OwnerID, Percent: input.Percent}
		err = database.DB.Create(&override).Error
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not save commission override")
	}

	return ok(c, override)
}

// DeleteCommissionOverride restores the platform default for an owner.
func DeleteCommissionOverride(c *fiber.Ctx) error {
	result := database.DB.Where("owner_id = ?", c.Params("owner_id")).Delete(&model.CommissionOverride{})
	if result.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not delete commission override")
	}
	if result.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "No override for that owner")
	}
	return ok(c, fiber.Map{"deleted": true})
}

// ListFailedPayouts surfaces transfers that exhausted their retry for
// manual follow-up.
func ListFailedPayouts(c *fiber.Ctx) error {
	var payouts []model.Payout
	if err := database.DB.Where("status = ?", model.TransferFailed).
		Order("updated_at DESC").Find(&payouts).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch payouts")
	}
	return ok(c, payouts)
}

// ReleaseOwnerPayouts force-releases an owner's held reservations so
// the next settlement sweep retries them.
func ReleaseOwnerPayouts(c *fiber.Ctx) error {
	var account model.PayoutAccount
	if err := database.DB.Where("owner_id = ?", c.Params("owner_id")).First(&account).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Owner has no payout account")
	}

	released, err := releaser.Release(account.OwnerID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not release held payouts")
	}

	return ok(c, fiber.Map{"released": released})
}
