package constants

// Public routes that are also embedded in URLs handed to tenants and the payment provider.
const (
	RouteOnboardClient      = "/onboard-client"
	RouteOnboardRefresh     = "/onboard-client/refresh"
	RouteConnectCallback    = "/connect/callback"
	RouteOnboardingComplete = "/onboarding/complete"
	RouteStripeWebhook      = "/webhooks/stripe"
)
