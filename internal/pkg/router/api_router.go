package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/connectboard/app/controllers"
	"github.com/ManuelReschke/connectboard/internal/pkg/middleware"
	"github.com/ManuelReschke/connectboard/internal/pkg/ratelimit"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

// ApiRouter mounts the JSON API used by admins and tenants.
type ApiRouter struct {
	deps Dependencies
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	d := h.deps
	adminOnly := middleware.Authenticate(d.Authenticator, middleware.AdminOnly)
	tenantOnly := middleware.Authenticate(d.Authenticator, middleware.TenantOnly)
	adminOrTenant := middleware.Authenticate(d.Authenticator, middleware.AdminOrTenant)
	brake := d.globalBrake()

	accounts := app.Group("/accounts", cors.New())
	accounts.Post("/", d.limit(limitAccountsCreate), adminOnly, d.Accounts.HandleCreate)
	accounts.Get("/", adminOnly, d.Accounts.HandleList)
	accounts.Get("/me", brake, tenantOnly, d.Accounts.HandleMe)
	accounts.Get("/:id", adminOnly, d.Accounts.HandleGet)
	accounts.Patch("/:id/status", adminOnly, d.Accounts.HandleUpdateStatus)

	app.Post("/payments/intents", brake, adminOrTenant, ratelimit.New(ratelimit.Config{
		Name:         limitPaymentsCreate.name,
		Limiter:      d.Limiter,
		MaxFunc:      paymentsMax,
		Window:       limitPaymentsCreate.window,
		KeyGenerator: actorKey,
	}), d.Payments.HandleCreateIntent)
}

// globalBrake is a coarse per-IP ceiling in front of tenant-facing routes.
func (d Dependencies) globalBrake() fiber.Handler {
	max := d.GlobalMax
	if max <= 0 {
		max = 300
	}
	window := d.GlobalWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		KeyGenerator:      controllers.GetClientIP,
		Storage:           d.GlobalStorage,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too Many Requests"})
		},
	})
}

func paymentsMax(c *fiber.Ctx) int {
	if usercontext.IsAdmin(c) {
		return adminPaymentsMax
	}
	return limitPaymentsCreate.max
}

// actorKey buckets authenticated callers by identity instead of address.
func actorKey(c *fiber.Ctx) string {
	actor, ok := usercontext.GetActor(c)
	switch {
	case ok && actor.IsTenant():
		return "tenant:" + actor.ClientID
	case ok && actor.IsAdmin():
		return "admin:" + actor.Subject
	default:
		return "ip:" + controllers.GetClientIP(c)
	}
}
