package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/connectboard/internal/pkg/constants"
)

// HttpRouter mounts the routes reached by browsers and the payment provider.
// None of them take a session or API key.
type HttpRouter struct {
	deps Dependencies
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	d := h.deps

	app.Get("/health", d.Health.HandleHealth)

	app.Get(constants.RouteOnboardClient, d.limit(limitOnboardLink), d.Onboarding.HandleSetupLink)
	app.Get(constants.RouteOnboardRefresh, d.limit(limitOnboardLink), d.Onboarding.HandleRefresh)
	app.Get(constants.RouteConnectCallback, d.limit(limitOnboardReturn), d.Onboarding.HandleCallback)
	app.Get(constants.RouteOnboardingComplete, d.Onboarding.HandleComplete)

	app.Post(constants.RouteStripeWebhook, d.Webhooks.HandleStripe)

	app.Post("/auth/login", d.limit(limitAuthLogin), d.Auth.HandleLogin)
}
