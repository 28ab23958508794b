package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/payments"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// IntentCreator creates payment intents on a tenant's connected account.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, clientID string, req payments.Request) (*payments.Intent, error)
}

type createIntentRequest struct {
	ClientID    string `json:"clientId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type PaymentsController struct {
	intents IntentCreator
}

func NewPaymentsController(intents IntentCreator) *PaymentsController {
	return &PaymentsController{intents: intents}
}

// HandleCreateIntent creates a payment intent. Tenants always act on their own
// account; admins name the tenant in the body.
func (pc *PaymentsController) HandleCreateIntent(c *fiber.Ctx) error {
	actor, ok := usercontext.GetActor(c)
	if !ok {
		return respondError(c, apperror.Unauthorized(nil))
	}

	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	clientID := strings.TrimSpace(req.ClientID)
	switch {
	case actor.IsTenant():
		if clientID != "" && clientID != actor.ClientID {
			return respondError(c, apperror.Forbidden(nil))
		}
		clientID = actor.ClientID
	case actor.IsAdmin():
		if clientID == "" {
			return badRequest(c, "clientId is required")
		}
	default:
		return respondError(c, apperror.Forbidden(nil))
	}

	intent, err := pc.intents.CreatePaymentIntent(c.UserContext(), clientID, payments.Request{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(intent)
}
