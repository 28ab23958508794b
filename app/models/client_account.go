package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/internal/pkg/security"
)

const (
	CLIENT_STATUS_ACTIVE   = "active"
	CLIENT_STATUS_INACTIVE = "inactive"
)

// ClientAccount is one onboarded tenant of the connected-account program.
type ClientAccount struct {
	ID                string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	Email             string    `gorm:"type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	APIKeyHash        string    `gorm:"type:varchar(100);default:''" json:"-"`
	APIKeyPrefix      string    `gorm:"type:varchar(24);default:'';index" json:"api_key_prefix"`
	APIKey            *string   `gorm:"column:api_key;type:varchar(100);default:null;index" json:"-"` // Deprecated: plaintext keys from before hashing
	ProviderAccountID *string   `gorm:"type:varchar(191);default:null;uniqueIndex" json:"provider_account_id"`
	Status            string    `gorm:"type:varchar(20);not null;default:'active'" json:"status" validate:"oneof=active inactive"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClientAccount) TableName() string {
	return "client_accounts"
}

func (a *ClientAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = CLIENT_STATUS_ACTIVE
	}
	return nil
}

func (a *ClientAccount) Validate() error {
	return validator.New().Struct(a)
}

// IsActive reports whether the tenant may authenticate with its API key.
func (a *ClientAccount) IsActive() bool {
	return a.Status == CLIENT_STATUS_ACTIVE
}

// IsLinked reports whether a provider account has been attached.
func (a *ClientAccount) IsLinked() bool {
	return a.ProviderAccountID != nil && strings.TrimSpace(*a.ProviderAccountID) != ""
}

// LinkedAccountID returns the provider account id or "" when not linked yet.
func (a *ClientAccount) LinkedAccountID() string {
	if !a.IsLinked() {
		return ""
	}
	return *a.ProviderAccountID
}

// IsValidClientStatus reports whether s is a known client status.
func IsValidClientStatus(s string) bool {
	return s == CLIENT_STATUS_ACTIVE || s == CLIENT_STATUS_INACTIVE
}

// IssueAPIKey generates a new tenant key, stores its hash and lookup prefix on the
// struct and returns the raw secret. Any legacy plaintext key is dropped.
// Callers must persist the struct afterwards.
func (a *ClientAccount) IssueAPIKey() (string, error) {
	raw, prefix, hash, err := security.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	a.APIKeyHash = hash
	a.APIKeyPrefix = prefix
	a.APIKey = nil
	return raw, nil
}
