package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
)

// onboardingTokenRepository implements the OnboardingTokenRepository interface
type onboardingTokenRepository struct {
	db *gorm.DB
}

// NewOnboardingTokenRepository creates a new onboarding token repository instance
func NewOnboardingTokenRepository(db *gorm.DB) OnboardingTokenRepository {
	return &onboardingTokenRepository{db: db}
}

func (r *onboardingTokenRepository) Create(ctx context.Context, token *models.OnboardingToken) error {
	if token.Status == "" {
		token.Status = models.ONBOARDING_STATUS_PENDING
	}
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *onboardingTokenRepository) GetByToken(ctx context.Context, token string) (*models.OnboardingToken, error) {
	var t models.OnboardingToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByClientAndState looks up an in-progress attempt by owner and nonce jointly.
func (r *onboardingTokenRepository) GetByClientAndState(ctx context.Context, clientID, state string) (*models.OnboardingToken, error) {
	if clientID == "" || state == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var t models.OnboardingToken
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND state = ? AND status = ?", clientID, state, models.ONBOARDING_STATUS_IN_PROGRESS).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkInProgress stores a fresh nonce, only while the token has not completed.
func (r *onboardingTokenRepository) MarkInProgress(ctx context.Context, id uint, state string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.OnboardingToken{}).
		Where("id = ? AND status IN ?", id, models.TransitionSources(models.ONBOARDING_STATUS_IN_PROGRESS)).
		Updates(map[string]interface{}{
			"status":           models.ONBOARDING_STATUS_IN_PROGRESS,
			"state":            state,
			"state_expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleToken
	}
	return nil
}

// CompleteOnboarding links the provider account and consumes the nonce in one transaction.
func (r *onboardingTokenRepository) CompleteOnboarding(ctx context.Context, tokenID uint, clientID, state, providerAccountID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setProviderAccountID(tx, clientID, providerAccountID); err != nil {
			return err
		}

		res := tx.Model(&models.OnboardingToken{}).
			Where("id = ? AND client_id = ? AND status IN ? AND state = ?",
				tokenID, clientID, models.TransitionSources(models.ONBOARDING_STATUS_COMPLETED), state).
			Updates(map[string]interface{}{
				"status":           models.ONBOARDING_STATUS_COMPLETED,
				"state":            nil,
				"state_expires_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleToken
		}
		return nil
	})
}
