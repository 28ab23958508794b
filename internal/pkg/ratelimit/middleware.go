package ratelimit

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Config defines the config for the rate limit middleware.
type Config struct {
	// Name namespaces the counters so each guarded route has its own budget.
	Name string

	Limiter Limiter

	// Max number of calls per Window. Ignored when MaxFunc is set.
	Max int

	// MaxFunc resolves the max per request.
	MaxFunc func(c *fiber.Ctx) int

	Window time.Duration

	// KeyGenerator identifies the caller. Defaults to the client IP.
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached is called on rejection. Defaults to 429 {"error":"Too Many Requests"}.
	LimitReached fiber.Handler
}

// New creates a rate limiting handler.
func New(cfg Config) fiber.Handler {
	if cfg.Limiter == nil {
		panic("ratelimit: Limiter is required")
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = 5
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}
	if cfg.LimitReached == nil {
		cfg.LimitReached = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too Many Requests"})
		}
	}

	return func(c *fiber.Ctx) error {
		max := cfg.Max
		if cfg.MaxFunc != nil {
			max = cfg.MaxFunc(c)
		}

		key := cfg.Name + ":" + cfg.KeyGenerator(c)
		res, err := cfg.Limiter.Allow(c.UserContext(), key, max, cfg.Window)
		if err != nil {
			log.Warnf("[RateLimit] %s: limiter unavailable, allowing request: %v", cfg.Name, err)
			return c.Next()
		}
		if !res.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			return cfg.LimitReached(c)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		return c.Next()
	}
}
