package middleware

import (
	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/utils/jwt"
)

// CheckListingOwnership loads the listing from the :id param and
// verifies the caller owns it (admins pass). The listing is stored in
// the context for the handler.
func CheckListingOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		listingID := c.Params("id")

		var listing model.Listing
		if err := database.DB.First(&listing, listingID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Listing not found",
			})
		}

		if listing.OwnerID != claims.UserID && claims.Role != string(model.RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "You don't have permission to access this listing",
			})
		}

		c.Locals("listing", &listing)
		return c.Next()
	}
}
