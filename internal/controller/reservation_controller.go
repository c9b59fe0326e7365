package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/timeutil"
	"slotmarket_backend/pkg/utils/jwt"
)

// actorFrom rebuilds the acting user from the token claims. The
// booking rules only need the id and role.
func actorFrom(claims *jwt.Claims) *model.User {
	return &model.User{
		Model: gorm.Model{ID: claims.UserID},
		Email: claims.Email,
		Role:  model.Role(claims.Role),
	}
}

func loadReservation(c *fiber.Ctx) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := database.DB.Preload("Listing").
		First(&reservation, "id = ?", c.Params("id")).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

type ReservationInput struct {
	ListingID uint   `json:"listing_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func CreateReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ReservationInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	date, err := parseDateParam(input.Date)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	start, err := timeutil.ParseTime(input.StartTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	end, err := timeutil.ParseTime(input.EndTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	var listing model.Listing
	if err := database.DB.First(&listing, input.ListingID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}

	reservation, err := booking.NewReservation(database.DB, cfg.Booking, &listing, claims.UserID, date, start, end, nil)
	if err != nil {
		return failFrom(c, err)
	}

	return created(c, reservation)
}

// ListMyReservations returns the caller's reservations, newest date
// first. Optional filters: ?status= and ?date=YYYY-MM-DD.
func ListMyReservations(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	q := database.DB.Preload("Listing").Where("consumer_id = ?", claims.UserID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if raw := c.Query("date"); raw != "" {
		date, err := parseDateParam(raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		q = q.Where("date = ?", date)
	}

	var reservations []model.Reservation
	if err := q.Order("date DESC, start_minute ASC").Find(&reservations).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch reservations")
	}

	return ok(c, reservations)
}

// ListListingReservations returns a listing's reservations for its
// owner. Runs behind CheckListingOwnership.
func ListListingReservations(c *fiber.Ctx) error {
	listing := c.Locals("listing").(*model.Listing)

	q := database.DB.Where("listing_id = ?", listing.ID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if raw := c.Query("date"); raw != "" {
		date, err := parseDateParam(raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		q = q.Where("date = ?", date)
	}

	var reservations []model.Reservation
	if err := q.Order("date ASC, start_minute ASC").Find(&reservations).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not fetch reservations")
	}

	return ok(c, reservations)
}

func GetReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	reservation, err := loadReservation(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Reservation not found")
	}

	actor := actorFrom(claims)
	if actor.ID != reservation.ConsumerID && actor.ID != reservation.Listing.OwnerID && !actor.IsAdmin() {
		return fail(c, fiber.StatusForbidden, "Not your reservation")
	}

	return ok(c, reservation)
}

func ConfirmReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	reservation, err := loadReservation(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Reservation not found")
	}

	if err := booking.Confirm(database.DB, reservation, actorFrom(claims)); err != nil {
		return failFrom(c, err)
	}
	return ok(c, reservation)
}

type CancelInput struct {
	Reason string `json:"reason"`
}

func CancelReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	reservation, err := loadReservation(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Reservation not found")
	}

	input := new(CancelInput)
	_ = c.BodyParser(input)

	if err := booking.Cancel(database.DB, cfg.Booking, reservation, actorFrom(claims), input.Reason, time.Now()); err != nil {
		return failFrom(c, err)
	}
	return ok(c, reservation)
}

type RescheduleInput struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func RescheduleReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	reservation, err := loadReservation(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Reservation not found")
	}

	input := new(RescheduleInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	date, err := parseDateParam(input.Date)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	start, err := timeutil.ParseTime(input.StartTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	end, err := timeutil.ParseTime(input.EndTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := booking.Reschedule(database.DB, cfg.Booking, reservation, actorFrom(claims), date, start, end); err != nil {
		return failFrom(c, err)
	}

	if err := database.DB.Preload("Listing").First(reservation, reservation.ID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not reload reservation")
	}
	return ok(c, reservation)
}

func CompleteReservation(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	reservation, err := loadReservation(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Reservation not found")
	}

	if err := booking.Complete(database.DB, cfg.Booking, reservation, actorFrom(claims)); err != nil {
		return failFrom(c, err)
	}
	return ok(c, reservation)
}
