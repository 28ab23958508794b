package stripeconnect

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
	"github.com/ManuelReschke/connectboard/internal/pkg/payments"
)

// Client wraps the Stripe API for connected accounts and their payments
type Client struct {
	api    *client.API
	config *Config
}

// NewClient creates a Stripe client. backends may be nil to use Stripe's default endpoints.
func NewClient(cfg *Config, backends *stripe.Backends) (*Client, error) {
	if cfg == nil || cfg.SecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}

	api := client.New(cfg.SecretKey, backends)
	log.Infof("[Stripe] client initialized for %s accounts", cfg.AccountType)
	return &Client{api: api, config: cfg}, nil
}

// CreateConnectedAccount creates the connected account for a tenant.
// The idempotency key is derived from the tenant id, so concurrent calls for
// the same tenant yield the same account.
func (c *Client) CreateConnectedAccount(ctx context.Context, p onboarding.ConnectedAccountParams) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(c.config.AccountType),
		Email: stripe.String(p.Email),
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(p.Name),
		},
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if c.config.DefaultCountry != "" {
		params.Country = stripe.String(c.config.DefaultCountry)
	}
	params.Context = ctx
	params.AddMetadata("client_id", p.ClientID)
	params.SetIdempotencyKey("connect-account-" + p.ClientID)

	acct, err := c.api.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// CreateAccountLink returns a hosted onboarding URL for the account.
func (c *Client) CreateAccountLink(ctx context.Context, p onboarding.AccountLinkParams) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(p.AccountID),
		RefreshURL: stripe.String(p.RefreshURL),
		ReturnURL:  stripe.String(p.ReturnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// CreatePaymentIntent creates a payment intent directly on the connected account.
func (c *Client) CreatePaymentIntent(ctx context.Context, p payments.IntentParams) (payments.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	params.Context = ctx
	params.SetStripeAccount(p.AccountID)
	params.AddMetadata("client_id", p.ClientID)
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.ClientID + ":" + p.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return payments.Intent{}, err
	}
	return payments.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}
