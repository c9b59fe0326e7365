package controller

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/utils/jwt"
)

type RegisterInput struct {
	Email    string     `json:"email" validate:"required,email"`
	Username string     `json:"username" validate:"required"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     model.Role `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	if input.Email == "" || input.Username == "" || len(input.Password) < 8 {
		return fail(c, fiber.StatusBadRequest, "Email, username and a password of at least 8 characters are required")
	}

	role := input.Role
	if role != model.RoleOwner {
		// Admins are only created by seeding or other admins.
		role = model.RoleConsumer
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not process password")
	}

	user := model.User{
		Email:    input.Email,
		Username: input.Username,
		Password: string(hashed),
		Role:     role,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return fail(c, fiber.StatusConflict, "Email or username already in use")
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not generate token")
	}

	return created(c, fiber.Map{"token": token, "user": user.GetPublicProfile()})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid input")
	}

	var user model.User
	if err := database.DB.First(&user, "email = ?", input.Email).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not generate token")
	}

	return ok(c, fiber.Map{"token": token, "user": user.GetPublicProfile()})
}

func GetMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.DB.First(&user, claims.UserID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return ok(c, user.GetPublicProfile())
}
