package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/connectboard/internal/pkg/security"
)

const ROLE_ADMIN = security.RoleAdmin

// AdminUser is an operator allowed to open admin sessions.
type AdminUser struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"type:varchar(200);not null;uniqueIndex" json:"email" validate:"required,email,max=200"`
	PasswordHash string     `gorm:"type:varchar(100);not null" json:"-"`
	Role         string     `gorm:"type:varchar(50);not null;default:'admin'" json:"role" validate:"oneof=admin"`
	LastLoginAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}

func NewAdminUser(email, password string) (*AdminUser, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &AdminUser{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         ROLE_ADMIN,
	}
	if err := validator.New().Struct(u); err != nil {
		return nil, err
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies the provided password against the stored hash.
func (u *AdminUser) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
