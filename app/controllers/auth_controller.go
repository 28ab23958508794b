package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/connectboard/internal/pkg/credentials"
)

// AdminLogin exchanges admin credentials for a session token.
type AdminLogin interface {
	Login(ctx context.Context, email, password string) (string, time.Duration, error)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthController struct {
	login AdminLogin
}

func NewAuthController(login AdminLogin) *AuthController {
	return &AuthController{login: login}
}

// HandleLogin returns a bearer token. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, ttl, err := ac.login.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredential) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":     token,
		"tokenType": "Bearer",
		"expiresIn": int64(ttl / time.Second),
	})
}
