package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/connectboard/internal/pkg/webhooks"
)

const HeaderStripeSignature = "Stripe-Signature"

// EventIngestor verifies and records provider webhook deliveries.
type EventIngestor interface {
	Ingest(ctx context.Context, payload []byte, signatureHeader string) (webhooks.Result, error)
}

type WebhookController struct {
	ingestor EventIngestor
}

func NewWebhookController(ingestor EventIngestor) *WebhookController {
	return &WebhookController{ingestor: ingestor}
}

// HandleStripe acknowledges every verified delivery with 200, including duplicates
// and events whose handler failed, so the provider stops redelivering.
func (wc *WebhookController) HandleStripe(c *fiber.Ctx) error {
	// the body must be passed on unmodified for signature verification
	payload := append([]byte(nil), c.Body()...)

	result, err := wc.ingestor.Ingest(c.UserContext(), payload, c.Get(HeaderStripeSignature))
	if err != nil {
		return respondError(c, err)
	}
	if result.DispatchErr != nil {
		log.Warnf("[Webhook] event %s (%s) acknowledged with handler error: %v", result.EventID, result.Type, result.DispatchErr)
	}
	return c.JSON(fiber.Map{
		"received":  true,
		"duplicate": result.Duplicate,
	})
}
