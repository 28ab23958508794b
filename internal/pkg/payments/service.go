package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
)

const CodePaymentIntentFailed = "STRIPE_PAYMENT_INTENT_FAILED"

var validate = validator.New()

// IntentParams is what the provider needs to create a payment intent on a connected account.
type IntentParams struct {
	AccountID      string
	ClientID       string
	Amount         int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// Intent is the provider's answer, reduced to what callers need.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Provider creates payment intents on connected accounts.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, params IntentParams) (Intent, error)
}

// ClientLookup loads tenants.
type ClientLookup interface {
	GetByID(ctx context.Context, id string) (*models.ClientAccount, error)
}

// Request is a payment intent request of a tenant.
type Request struct {
	Amount         int64  `json:"amount" validate:"gt=0"`
	Currency       string `json:"currency" validate:"required,iso4217"`
	Description    string `json:"description" validate:"max=500"`
	IdempotencyKey string `json:"-" validate:"max=255"`
}

type Service struct {
	clients  ClientLookup
	provider Provider
}

func NewService(clients ClientLookup, provider Provider) *Service {
	return &Service{clients: clients, provider: provider}
}

// CreatePaymentIntent creates an intent on the tenant's connected account.
// The tenant must be active and have completed onboarding.
func (s *Service) CreatePaymentIntent(ctx context.Context, clientID string, req Request) (*Intent, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, apperror.Validation("Amount must be positive and currency a valid ISO 4217 code")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, apperror.Validation("client_id is required")
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("Unknown client")
		}
		return nil, apperror.Internal("Failed to load client", err)
	}
	if !client.IsActive() {
		return nil, apperror.Validation("Client is inactive")
	}
	if !client.IsLinked() {
		return nil, apperror.Validation("Client has not completed onboarding")
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, IntentParams{
		AccountID:      client.LinkedAccountID(),
		ClientID:       client.ID,
		Amount:         req.Amount,
		Currency:       strings.ToLower(req.Currency),
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		log.Errorf("[Payments] payment intent for client %s failed: %v", client.ID, err)
		return nil, apperror.Upstream("Failed to create payment intent", CodePaymentIntentFailed, err)
	}
	return &intent, nil
}
