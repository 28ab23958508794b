package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const healthTimeout = 2 * time.Second

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// HealthController reports the status of the database and optional dependencies.
type HealthController struct {
	checks map[string]Check
}

func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(hc.checks))
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			log.Warnf("[Health] %s unavailable: %v", name, err)
			results[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": results,
	})
}
