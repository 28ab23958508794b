package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
)

// maxPrefixCandidates bounds the rows compared per API key lookup.
const maxPrefixCandidates = 16

// clientRepository implements the ClientRepository interface
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository instance
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *models.ClientAccount) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// Delete removes a client row. Used as compensating cleanup when onboarding setup fails.
func (r *clientRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClientAccount{}).Error
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*models.ClientAccount, error) {
	var client models.ClientAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, offset, limit int) ([]models.ClientAccount, error) {
	var clients []models.ClientAccount
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&clients).Error
	return clients, err
}

// FindByAPIKeyPrefix returns the clients whose hashed key carries the given lookup prefix.
// Status is not filtered here so the caller spends the same hashing effort either way.
func (r *clientRepository) FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.ClientAccount, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	var clients []models.ClientAccount
	err := r.db.WithContext(ctx).
		Where("api_key_prefix = ? AND api_key_hash <> ''", prefix).
		Limit(maxPrefixCandidates).
		Find(&clients).Error
	return clients, err
}

// FindActiveByLegacyAPIKey resolves a deprecated plaintext key, active clients only.
func (r *clientRepository) FindActiveByLegacyAPIKey(ctx context.Context, key string) (*models.ClientAccount, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var client models.ClientAccount
	err := r.db.WithContext(ctx).
		Where("api_key = ? AND status = ?", key, models.CLIENT_STATUS_ACTIVE).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) SetProviderAccountID(ctx context.Context, clientID, providerAccountID string) error {
	return setProviderAccountID(r.db.WithContext(ctx), clientID, providerAccountID)
}

// setProviderAccountID is the write-once update shared with the onboarding completion transaction.
func setProviderAccountID(db *gorm.DB, clientID, providerAccountID string) error {
	res := db.Model(&models.ClientAccount{}).
		Where("id = ? AND (provider_account_id IS NULL OR provider_account_id = ?)", clientID, providerAccountID).
		Update("provider_account_id", providerAccountID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrAccountTaken
		}
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing changed: either the row is gone, already holds this id, or holds another one.
	var current models.ClientAccount
	if err := db.Select("id", "provider_account_id").Where("id = ?", clientID).First(&current).Error; err != nil {
		return err
	}
	if current.LinkedAccountID() == providerAccountID {
		return nil
	}
	return ErrAlreadyLinked
}

// SyncDetailsByProviderAccountID copies non-empty display fields onto the client linked
// to providerAccountID. It reports false when no client is linked to it.
func (r *clientRepository) SyncDetailsByProviderAccountID(ctx context.Context, providerAccountID, name, email string) (bool, error) {
	db := r.db.WithContext(ctx)
	var client models.ClientAccount
	if err := db.Where("provider_account_id = ?", providerAccountID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	updates := map[string]interface{}{}
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if email = strings.TrimSpace(email); email != "" {
		updates["email"] = email
	}
	if len(updates) == 0 {
		return true, nil
	}
	return true, db.Model(&models.ClientAccount{}).Where("id = ?", client.ID).Updates(updates).Error
}

func (r *clientRepository) UpdateStatus(ctx context.Context, id, status string) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.ClientAccount{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.ClientAccount{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
