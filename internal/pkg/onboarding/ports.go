package onboarding

import (
	"context"
	"time"

	"github.com/ManuelReschke/connectboard/app/models"
)

// ClientStore is the client persistence used by the onboarding flow.
type ClientStore interface {
	Create(ctx context.Context, client *models.ClientAccount) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.ClientAccount, error)
	SetProviderAccountID(ctx context.Context, clientID, providerAccountID string) error
}

// TokenStore is the onboarding token persistence used by the onboarding flow.
type TokenStore interface {
	Create(ctx context.Context, token *models.OnboardingToken) error
	GetByToken(ctx context.Context, token string) (*models.OnboardingToken, error)
	GetByClientAndState(ctx context.Context, clientID, state string) (*models.OnboardingToken, error)
	MarkInProgress(ctx context.Context, id uint, state string, expiresAt time.Time) error
	CompleteOnboarding(ctx context.Context, tokenID uint, clientID, state, providerAccountID string) error
}

// ConnectedAccountParams describes the tenant a connected account is created for.
type ConnectedAccountParams struct {
	ClientID string
	Name     string
	Email    string
}

// AccountLinkParams describes a provider-hosted setup link.
type AccountLinkParams struct {
	AccountID  string
	ReturnURL  string
	RefreshURL string
}

// AccountProvisioner is the payment provider's account API.
type AccountProvisioner interface {
	CreateConnectedAccount(ctx context.Context, params ConnectedAccountParams) (string, error)
	CreateAccountLink(ctx context.Context, params AccountLinkParams) (string, error)
}

// Invite is the onboarding invitation sent to a new tenant.
type Invite struct {
	Name  string
	Email string
	URL   string
}

// Notifier delivers onboarding invitations. Delivery is best-effort.
type Notifier interface {
	SendOnboardingInvite(ctx context.Context, invite Invite) error
}
