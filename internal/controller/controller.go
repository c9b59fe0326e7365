// Package controller holds the HTTP handlers. Every response uses the
// success/data/message envelope.
package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/config"
	"slotmarket_backend/pkg/gateway"
	"slotmarket_backend/pkg/settlement"
)

var (
	cfg      *config.Config
	payments gateway.PaymentGateway
	sengine  *settlement.Engine
	releaser *settlement.Releaser
)

// InitControllers wires the shared collaborators. Called once from
// main before routes are registered.
func InitControllers(c *config.Config, gw gateway.PaymentGateway, eng *settlement.Engine, rl *settlement.Releaser) {
	cfg = c
	payments = gw
	sengine = eng
	releaser = rl
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// failFrom maps domain errors onto HTTP statuses: authorization as
// 403, conflicts as 409, anything else as a 400 validation failure.
func failFrom(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, booking.ErrNotAuthorized):
		return fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrRescheduleLimit),
		errors.Is(err, booking.ErrInvalidTransition):
		return fail(c, fiber.StatusConflict, err.Error())
	default:
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
}
