package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
)

// ClientRepository defines the persistence operations on onboarded tenants.
type ClientRepository interface {
	Create(ctx context.Context, client *models.ClientAccount) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.ClientAccount, error)
	List(ctx context.Context, offset, limit int) ([]models.ClientAccount, error)
	FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.ClientAccount, error)
	FindActiveByLegacyAPIKey(ctx context.Context, key string) (*models.ClientAccount, error)
	// SetProviderAccountID sets the provider account id once. Setting the value the
	// client already has is a no-op; a different value yields ErrAlreadyLinked.
	SetProviderAccountID(ctx context.Context, clientID, providerAccountID string) error
	SyncDetailsByProviderAccountID(ctx context.Context, providerAccountID, name, email string) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// OnboardingTokenRepository defines the persistence operations on onboarding attempts.
// There is intentionally no lookup by state alone.
type OnboardingTokenRepository interface {
	Create(ctx context.Context, token *models.OnboardingToken) error
	GetByToken(ctx context.Context, token string) (*models.OnboardingToken, error)
	GetByClientAndState(ctx context.Context, clientID, state string) (*models.OnboardingToken, error)
	MarkInProgress(ctx context.Context, id uint, state string, expiresAt time.Time) error
	CompleteOnboarding(ctx context.Context, tokenID uint, clientID, state, providerAccountID string) error
}

// WebhookEventRepository defines the persistence operations on received webhook events.
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, processingErr error) error
}

// AdminUserRepository defines the persistence operations on administrators.
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Count(ctx context.Context) (int64, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Client          ClientRepository
	OnboardingToken OnboardingTokenRepository
	WebhookEvent    WebhookEventRepository
	AdminUser       AdminUserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Client:          NewClientRepository(db),
		OnboardingToken: NewOnboardingTokenRepository(db),
		WebhookEvent:    NewWebhookEventRepository(db),
		AdminUser:       NewAdminUserRepository(db),
	}
}
