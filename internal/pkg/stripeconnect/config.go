package stripeconnect

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/connectboard/internal/pkg/env"
)

// Config holds Stripe Connect configuration
type Config struct {
	SecretKey      string
	WebhookSecret  string
	AccountType    string // express, standard or custom
	DefaultCountry string // Optional two-letter country for new accounts
}

// LoadConfig loads Stripe configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		SecretKey:      env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:  env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		AccountType:    strings.ToLower(env.GetEnv("STRIPE_ACCOUNT_TYPE", "express")),
		DefaultCountry: strings.ToUpper(env.GetEnv("STRIPE_DEFAULT_COUNTRY", "")),
	}

	switch config.AccountType {
	case "express", "standard", "custom":
	default:
		return nil, errors.New("STRIPE_ACCOUNT_TYPE must be express, standard or custom")
	}

	return config, nil
}

// HasWebhookSecret reports whether incoming webhooks can be verified
func (c *Config) HasWebhookSecret() bool {
	return c.WebhookSecret != ""
}
