package credentials

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/security"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

// ErrInvalidCredential is the only failure tenants and login callers ever see.
var ErrInvalidCredential = errors.New("invalid credential")

// ClientKeyStore is the subset of the client repository used for API key checks.
type ClientKeyStore interface {
	FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.ClientAccount, error)
	FindActiveByLegacyAPIKey(ctx context.Context, key string) (*models.ClientAccount, error)
}

// AdminStore is the subset of the admin user repository used for logins.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// Verifier authenticates admin sessions and tenant API keys.
type Verifier struct {
	sessions *security.SessionManager
	clients  ClientKeyStore
	admins   AdminStore
	now      func() time.Time
}

func NewVerifier(sessions *security.SessionManager, clients ClientKeyStore, admins AdminStore) *Verifier {
	return &Verifier{sessions: sessions, clients: clients, admins: admins, now: time.Now}
}

// AuthenticateAdmin checks an Authorization header carrying an admin session.
// It returns security.ErrSessionMissing, ErrSessionExpired or ErrSessionInvalid on failure.
func (v *Verifier) AuthenticateAdmin(authorization string) (usercontext.Actor, error) {
	token, err := security.ParseBearer(authorization)
	if err != nil {
		return usercontext.Actor{}, err
	}
	claims, err := v.sessions.VerifyAdmin(token)
	if err != nil {
		log.Infof("[Auth] admin session rejected: %v", err)
		return usercontext.Actor{}, err
	}
	return usercontext.Admin(claims.Subject), nil
}

// AuthenticateAPIKey resolves a tenant from its raw API key. Every failure,
// whatever its cause, is ErrInvalidCredential.
func (v *Verifier) AuthenticateAPIKey(ctx context.Context, key string) (usercontext.Actor, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return usercontext.Actor{}, ErrInvalidCredential
	}

	candidates, err := v.clients.FindByAPIKeyPrefix(ctx, security.APIKeyLookupPrefix(key))
	if err != nil {
		return usercontext.Actor{}, apperror.Internal("Internal Server Error", err)
	}
	if len(candidates) == 0 {
		security.BurnAPIKeyComparison(key)
	}

	var matched *models.ClientAccount
	for i := range candidates {
		if security.CompareAPIKey(candidates[i].APIKeyHash, key) && matched == nil {
			matched = &candidates[i]
		}
	}
	if matched != nil {
		if !matched.IsActive() {
			log.Infof("[Auth] api key of inactive client %s rejected", matched.ID)
			return usercontext.Actor{}, ErrInvalidCredential
		}
		return usercontext.Tenant(matched.ID), nil
	}

	legacy, err := v.clients.FindActiveByLegacyAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usercontext.Actor{}, ErrInvalidCredential
		}
		return usercontext.Actor{}, apperror.Internal("Internal Server Error", err)
	}
	if legacy.APIKey == nil || subtle.ConstantTimeCompare([]byte(*legacy.APIKey), []byte(key)) != 1 {
		return usercontext.Actor{}, ErrInvalidCredential
	}
	log.Warnf("[Auth] client %s authenticated with a legacy plaintext api key", legacy.ID)
	return usercontext.Tenant(legacy.ID), nil
}

// Login exchanges admin credentials for a session token.
func (v *Verifier) Login(ctx context.Context, email, password string) (string, time.Duration, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", 0, apperror.Validation("Email and password are required")
	}

	user, err := v.admins.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, apperror.Internal("Internal Server Error", err)
		}
		security.BurnAPIKeyComparison(password)
		return "", 0, ErrInvalidCredential
	}
	if !user.CheckPassword(password) {
		log.Infof("[Auth] failed login for admin %d", user.ID)
		return "", 0, ErrInvalidCredential
	}

	token, err := v.sessions.Issue(user.Email, user.Role)
	if err != nil {
		return "", 0, apperror.Internal("Internal Server Error", err)
	}
	if err := v.admins.TouchLastLogin(ctx, user.ID, v.now()); err != nil {
		log.Warnf("[Auth] failed to record login for admin %d: %v", user.ID, err)
	}
	return token, v.sessions.TTL(), nil
}
