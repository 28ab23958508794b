package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/connectboard/app/controllers"
	"github.com/ManuelReschke/connectboard/internal/pkg/middleware"
	"github.com/ManuelReschke/connectboard/internal/pkg/ratelimit"
)

// Dependencies are the wired controllers and guards the routers mount.
type Dependencies struct {
	Authenticator middleware.Authenticator
	Limiter       ratelimit.Limiter

	// GlobalStorage backs the coarse per-IP brake on the tenant API.
	// nil keeps the counters in process memory.
	GlobalStorage fiber.Storage
	GlobalMax     int
	GlobalWindow  time.Duration

	Accounts   *controllers.AccountsController
	Onboarding *controllers.OnboardingController
	Webhooks   *controllers.WebhookController
	Auth       *controllers.AuthController
	Payments   *controllers.PaymentsController
	Health     *controllers.HealthController
}

type routeLimit struct {
	name   string
	max    int
	window time.Duration
}

var (
	limitAccountsCreate = routeLimit{name: "accounts:create", max: 20, window: 15 * time.Minute}
	limitOnboardLink    = routeLimit{name: "onboard:link", max: 30, window: 15 * time.Minute}
	limitOnboardReturn  = routeLimit{name: "onboard:callback", max: 30, window: 15 * time.Minute}
	limitAuthLogin      = routeLimit{name: "auth:login", max: 5, window: 15 * time.Minute}
	limitPaymentsCreate = routeLimit{name: "payments:create", max: 60, window: 15 * time.Minute}
)

const adminPaymentsMax = 120

func (d Dependencies) limit(l routeLimit) fiber.Handler {
	return ratelimit.New(ratelimit.Config{
		Name:         l.name,
		Limiter:      d.Limiter,
		Max:          l.max,
		Window:       l.window,
		KeyGenerator: controllers.GetClientIP,
	})
}
