package stripeconnect

import (
	"errors"

	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ManuelReschke/connectboard/internal/pkg/webhooks"
)

// WebhookVerifier checks the Stripe-Signature header against the endpoint secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify validates the raw payload and returns the parsed event.
// The API version of the event is not checked against the library's.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (webhooks.Event, error) {
	if v == nil || v.secret == "" {
		return webhooks.Event{}, webhooks.ErrVerifierNotConfigured
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return webhooks.Event{}, err
	}
	if ev.Data == nil {
		return webhooks.Event{}, errors.New("event without data")
	}

	return webhooks.Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Account: ev.Account,
		Object:  ev.Data.Raw,
	}, nil
}
