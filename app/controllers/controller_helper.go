package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// respondError writes err as {"error": message[, "code": code]} with the status of its kind.
// Causes of internal and configuration errors are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperror.From(err)
	status := appErr.Kind.Status()

	if status >= fiber.StatusInternalServerError {
		log.Errorf("[HTTP] %s %s failed (%s): %v", c.Method(), c.Path(), requestID(c), err)
	}

	message := appErr.Message
	if appErr.Kind == apperror.KindInternal {
		message = "Internal Server Error"
	}
	body := fiber.Map{"error": message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// pagination reads offset and limit query parameters with sane bounds.
func pagination(c *fiber.Ctx) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// GetClientIP returns the network origin of the request. Forwarding headers
// only count when the peer is one of the app's TrustedProxies and the header is
// the configured ProxyHeader.
func GetClientIP(c *fiber.Ctx) string {
	// IPv4 in IPv6 mapping (::ffff:192.168.1.1)
	return strings.TrimPrefix(c.IP(), "::ffff:")
}
