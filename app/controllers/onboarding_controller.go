package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
)

// OnboardingFlow is the token lifecycle driven by the public onboarding endpoints.
type OnboardingFlow interface {
	RequestSetupLink(ctx context.Context, token string) (string, error)
	RefreshLink(ctx context.Context, token string) (string, error)
	CompleteCallback(ctx context.Context, in onboarding.CallbackInput) (string, error)
}

// OnboardingController serves the unauthenticated onboarding endpoints.
// The onboarding token and the state nonce are the only credentials here.
type OnboardingController struct {
	flow OnboardingFlow
}

func NewOnboardingController(flow OnboardingFlow) *OnboardingController {
	return &OnboardingController{flow: flow}
}

// HandleSetupLink answers with the provider-hosted setup URL as JSON.
func (oc *OnboardingController) HandleSetupLink(c *fiber.Ctx) error {
	link, err := oc.flow.RequestSetupLink(c.UserContext(), c.Query("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": link})
}

// HandleRefresh is the provider's refresh URL; it sends the browser to a fresh setup link.
func (oc *OnboardingController) HandleRefresh(c *fiber.Ctx) error {
	link, err := oc.flow.RefreshLink(c.UserContext(), c.Query("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(link, fiber.StatusFound)
}

// HandleCallback is the provider's return URL.
func (oc *OnboardingController) HandleCallback(c *fiber.Ctx) error {
	target, err := oc.flow.CompleteCallback(c.UserContext(), onboarding.CallbackInput{
		ClientID:  c.Query("client_id"),
		AccountID: c.Query("account"),
		State:     c.Query("state"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(target, fiber.StatusFound)
}

// HandleComplete renders the landing page after a successful callback.
func (oc *OnboardingController) HandleComplete(c *fiber.Ctx) error {
	return c.Render("onboarding/complete", fiber.Map{
		"Title": "Onboarding complete",
	}, "layouts/main")
}
