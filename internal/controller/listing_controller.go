package controller

import (
	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/availability"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/timeutil"
	"slotmarket_backend/pkg/utils/jwt"
	"slotmarket_backend/pkg/utils/storage"
)

type ListingInput struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description"`
	OpenTime     string         `json:"open_time" validate:"required"`
	CloseTime    string         `json:"close_time" validate:"required"`
	Granularity  int            `json:"granularity" validate:"required"`
	PricePerSlot float64        `json:"price_per_slot" validate:"required"`
	Currency     model.Currency `json:"currency"`
	IsActive     *bool          `json:"is_active"`
}

func (in *ListingInput) apply(listing *model.Listing) error {
	open, err := timeutil.ParseTime(in.OpenTime)
	if err != nil {
		return err
	}
	closeMinute, err := timeutil.ParseTime(in.CloseTime)
	if err != nil {
		return err
	}

	listing.Title = in.Title
	listing.Description = in.Description
	listing.OpenMinute = open
	listing.CloseMinute = closeMinute
	listing.Granularity = in.Granularity
	listing.PricePerSlot = in.PricePerSlot
	if in.Currency != "" {
		listing.Currency = in.Currency
	}
	if in.IsActive != nil {
		listing.IsActive = *in.IsActive
	}

	if !availability.ValidGranularity(listing.Granularity) {
		return availability.ErrBadGranularity
	}
	return listing.ValidateHours(cfg.Booking.MinOpenSpanHours * 60)
}

func CreateListing(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(ListingInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	listing := model.Listing{
		OwnerID:  claims.UserID,
		Currency: model.CurrencyUSD,
		IsActive: true,
	}
	if err := input.apply(&listing); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := database.DB.Create(&listing).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not create listing")
	}

	return created(c, listing)
}

func UpdateListing(c *fiber.Ctx) error {
	listing := c.Locals("listing").(*model.Listing)

	input := new(ListingInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	if err := input.apply(listing); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := database.DB.Save(listing).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not update listing")
	}

	return ok(c, listing)
}

func ListMyListings(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var listings []model.Listing
	if err := database.DB.Preload("Images").
		Where("owner_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch listings")
	}

	return ok(c, listings)
}

func GetListing(c *fiber.Ctx) error {
	var listing model.Listing
	if err := database.DB.Preload("Images").
		First(&listing, "id = ? AND is_active = ? AND is_approved = ?", c.Params("id"), true, true).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	return ok(c, listing)
}

func UploadListingImage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	listing := c.Locals("listing").(*model.Listing)

	file, err := c.FormFile("image")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No image file provided")
	}

	url, err := storage.UploadListingImage(file, claims.UserID, listing.ID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	image := model.ListingImage{
		ListingID: listing.ID,
		URL:       url,
		IsCover:   c.FormValue("is_cover") == "true",
	}
	if err := database.DB.Create(&image).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not save image")
	}

	return created(c, image)
}

func DeleteListingImage(c *fiber.Ctx) error {
	listing := c.Locals("listing").(*model.Listing)

	var image model.ListingImage
	if err := database.DB.First(&image, "id = ? AND listing_id = ?", c.Params("image_id"), listing.ID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Image not found")
	}

	if err := storage.DeleteImage(image.URL); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not delete stored image")
	}
	if err := database.DB.Delete(&image).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not delete image record")
	}

	return ok(c, fiber.Map{"deleted": image.ID})
}
