package onboarding

import (
	"strings"

	"github.com/ManuelReschke/connectboard/internal/pkg/constants"
	"github.com/ManuelReschke/connectboard/internal/pkg/env"
)

// Config holds the public URLs the onboarding flow hands to clients and the provider.
type Config struct {
	PublicDomain string
	SuccessURL   string
}

// LoadConfig reads onboarding settings from env.
func LoadConfig() Config {
	return Config{
		PublicDomain: env.GetEnv("PUBLIC_DOMAIN", ""),
		SuccessURL:   env.GetEnv("CONNECT_SUCCESS_URL", ""),
	}
}

// BaseURL returns the public origin without trailing slash, defaulting to https.
// It is empty when PUBLIC_DOMAIN is not set.
func (c Config) BaseURL() string {
	d := strings.TrimRight(strings.TrimSpace(c.PublicDomain), "/")
	if d == "" {
		return ""
	}
	if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
		d = "https://" + d
	}
	return d
}

// SuccessRedirect is where completed callbacks are sent. It never fails.
func (c Config) SuccessRedirect() string {
	if u := strings.TrimSpace(c.SuccessURL); u != "" {
		return u
	}
	return c.BaseURL() + constants.RouteOnboardingComplete
}
