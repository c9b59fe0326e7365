package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/utils/jwt"
)

// AuthMiddleware validates the bearer token and stores the claims in
// the request context.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing or malformed token",
			})
		}

		claims, err := jwt.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}

// RequireRole rejects requests whose token carries none of the given
// roles. Admins pass every check.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		if claims.Role == string(model.RoleAdmin) {
			return c.Next()
		}
		for _, role := range roles {
			if claims.Role == string(role) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "You don't have permission to perform this action",
		})
	}
}
