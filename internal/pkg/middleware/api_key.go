package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const HeaderAPIKey = "X-API-Key"

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderAPIKey))
}

func extractAuthorization(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
}
