package onboarding

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/app/repository"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/constants"
	"github.com/ManuelReschke/connectboard/internal/pkg/security"
)

const (
	CodeAccountCreateFailed = "STRIPE_ACCOUNT_CREATE_FAILED"
	CodeAccountLinkFailed   = "STRIPE_ACCOUNT_LINK_FAILED"

	tokenBytes    = 32
	nonceBytes    = 32
	inviteTimeout = 30 * time.Second
)

const (
	msgInvalidToken   = "Invalid or expired onboarding token"
	msgMissingState   = "Missing state parameter"
	msgMissingAccount = "Missing account parameter"
	msgInvalidState   = "Invalid or expired state"
	msgStateExpired   = "State has expired"
	msgAlreadyLinked  = "Client already linked to a different account"
	msgAccountTaken   = "Account already linked to a different client"
)

var validate = validator.New()

// CreateResult is returned once per created tenant. APIKey is never retrievable again.
type CreateResult struct {
	ClientID          string `json:"clientId"`
	Name              string `json:"name"`
	OnboardingToken   string `json:"onboardingToken"`
	OnboardingURLHint string `json:"onboardingUrlHint"`
	APIKey            string `json:"apiKey"`
}

// CallbackInput carries the query parameters of the provider's return redirect.
type CallbackInput struct {
	ClientID  string
	AccountID string
	State     string
}

// Service runs the onboarding token lifecycle:
// pending -> in_progress (setup link issued, nonce minted) -> completed (callback validated).
type Service struct {
	clients  ClientStore
	tokens   TokenStore
	provider AccountProvisioner
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

func NewService(clients ClientStore, tokens TokenStore, provider AccountProvisioner, notifier Notifier, cfg Config) *Service {
	return &Service{
		clients:  clients,
		tokens:   tokens,
		provider: provider,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for nonce expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create registers a tenant with an API key and a pending onboarding token.
// If the token cannot be stored the tenant is deleted again.
func (s *Service) Create(ctx context.Context, name, email string) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, apperror.Validation("Name is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperror.Validation("A valid email is required")
	}

	client := &models.ClientAccount{
		Name:   name,
		Email:  email,
		Status: models.CLIENT_STATUS_ACTIVE,
	}
	if err := client.Validate(); err != nil {
		return nil, apperror.Validation("Name or email is too long")
	}
	apiKey, err := client.IssueAPIKey()
	if err != nil {
		return nil, apperror.Internal("Failed to create client", err)
	}
	tokenValue, err := security.RandomToken(tokenBytes)
	if err != nil {
		return nil, apperror.Internal("Failed to create client", err)
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, apperror.Internal("Failed to create client", err)
	}

	token := &models.OnboardingToken{
		Token:    tokenValue,
		ClientID: client.ID,
		Status:   models.ONBOARDING_STATUS_PENDING,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		if delErr := s.clients.Delete(ctx, client.ID); delErr != nil {
			log.Errorf("[Onboarding] cleanup of client %s failed after token error: %v", client.ID, delErr)
		}
		return nil, apperror.Internal("Failed to create onboarding token", err)
	}

	hint := s.cfg.BaseURL() + constants.RouteOnboardClient + "?token=" + url.QueryEscape(tokenValue)
	s.sendInvite(Invite{Name: client.Name, Email: client.Email, URL: hint})

	log.Infof("[Onboarding] created client %s", client.ID)
	return &CreateResult{
		ClientID:          client.ID,
		Name:              client.Name,
		OnboardingToken:   tokenValue,
		OnboardingURLHint: hint,
		APIKey:            apiKey,
	}, nil
}

func (s *Service) sendInvite(invite Invite) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), inviteTimeout)
		defer cancel()
		if err := s.notifier.SendOnboardingInvite(ctx, invite); err != nil {
			log.Warnf("[Onboarding] invite to %s not delivered: %v", invite.Email, err)
		}
	}()
}

// RequestSetupLink returns a provider-hosted setup URL for a redeemable token.
// The token only moves to in_progress after the provider returned a link, so
// an upstream failure leaves it retryable.
func (s *Service) RequestSetupLink(ctx context.Context, tokenValue string) (string, error) {
	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return "", apperror.NotFoundOrInvalid(msgInvalidToken)
	}

	token, err := s.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.NotFoundOrInvalid(msgInvalidToken)
		}
		return "", apperror.Internal("Failed to load onboarding token", err)
	}
	if !token.IsRedeemable() {
		return "", apperror.NotFoundOrInvalid(msgInvalidToken)
	}

	base := s.cfg.BaseURL()
	if base == "" {
		log.Error("[Onboarding] PUBLIC_DOMAIN is not configured")
		return "", apperror.Configuration("Onboarding is not configured")
	}

	client, err := s.clients.GetByID(ctx, token.ClientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.NotFoundOrInvalid(msgInvalidToken)
		}
		return "", apperror.Internal("Failed to load client", err)
	}

	accountID, err := s.ensureConnectedAccount(ctx, client)
	if err != nil {
		return "", err
	}

	nonce, err := security.RandomToken(nonceBytes)
	if err != nil {
		return "", apperror.Internal("Failed to create state", err)
	}
	expiresAt := s.now().Add(models.StateTTL)

	returnURL := base + constants.RouteConnectCallback + "?" + url.Values{
		"client_id": {client.ID},
		"account":   {accountID},
		"state":     {nonce},
	}.Encode()
	refreshURL := base + constants.RouteOnboardRefresh + "?token=" + url.QueryEscape(tokenValue)

	link, err := s.provider.CreateAccountLink(ctx, AccountLinkParams{
		AccountID:  accountID,
		ReturnURL:  returnURL,
		RefreshURL: refreshURL,
	})
	if err != nil {
		log.Errorf("[Onboarding] account link for client %s failed: %v", client.ID, err)
		return "", apperror.Upstream("Failed to create account link", CodeAccountLinkFailed, err)
	}

	if err := s.tokens.MarkInProgress(ctx, token.ID, nonce, expiresAt); err != nil {
		if errors.Is(err, repository.ErrStaleToken) {
			return "", apperror.NotFoundOrInvalid(msgInvalidToken)
		}
		return "", apperror.Internal("Failed to update onboarding token", err)
	}
	return link, nil
}

// RefreshLink reissues a setup link when the provider reports the previous one expired.
func (s *Service) RefreshLink(ctx context.Context, tokenValue string) (string, error) {
	return s.RequestSetupLink(ctx, tokenValue)
}

// ensureConnectedAccount returns the client's provider account, creating it on first use.
// When a concurrent request linked first, its account is adopted.
func (s *Service) ensureConnectedAccount(ctx context.Context, client *models.ClientAccount) (string, error) {
	if client.IsLinked() {
		return client.LinkedAccountID(), nil
	}

	accountID, err := s.provider.CreateConnectedAccount(ctx, ConnectedAccountParams{
		ClientID: client.ID,
		Name:     client.Name,
		Email:    client.Email,
	})
	if err != nil {
		log.Errorf("[Onboarding] connected account for client %s failed: %v", client.ID, err)
		return "", apperror.Upstream("Failed to create connected account", CodeAccountCreateFailed, err)
	}

	err = s.clients.SetProviderAccountID(ctx, client.ID, accountID)
	switch {
	case err == nil:
		return accountID, nil
	case errors.Is(err, repository.ErrAlreadyLinked):
		stored, getErr := s.clients.GetByID(ctx, client.ID)
		if getErr != nil {
			return "", apperror.Internal("Failed to load client", getErr)
		}
		log.Warnf("[Onboarding] client %s was linked concurrently, discarding account %s", client.ID, accountID)
		return stored.LinkedAccountID(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", apperror.NotFoundOrInvalid(msgInvalidToken)
	default:
		return "", apperror.Internal("Failed to link connected account", err)
	}
}

// CompleteCallback validates the provider's return redirect and finishes onboarding.
// The nonce is looked up together with the client id and consumed on success.
// It returns the URL the user is redirected to.
func (s *Service) CompleteCallback(ctx context.Context, in CallbackInput) (string, error) {
	state := strings.TrimSpace(in.State)
	accountID := strings.TrimSpace(in.AccountID)
	clientID := strings.TrimSpace(in.ClientID)
	if state == "" {
		return "", apperror.Validation(msgMissingState)
	}
	if accountID == "" {
		return "", apperror.Validation(msgMissingAccount)
	}

	token, err := s.tokens.GetByClientAndState(ctx, clientID, state)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.InvalidState(msgInvalidState)
		}
		return "", apperror.Internal("Failed to load onboarding token", err)
	}
	if token.StateExpired(s.now()) {
		return "", apperror.Expired(msgStateExpired)
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("[Onboarding] callback for removed client %s ignored", clientID)
			return s.cfg.SuccessRedirect(), nil
		}
		return "", apperror.Internal("Failed to load client", err)
	}
	if client.IsLinked() && client.LinkedAccountID() != accountID {
		log.Warnf("[Onboarding] client %s callback carried foreign account %s", clientID, accountID)
		return "", apperror.Conflict(msgAlreadyLinked)
	}

	if !models.CanTransition(token.Status, models.ONBOARDING_STATUS_COMPLETED) {
		return "", apperror.InvalidState(msgInvalidState)
	}

	err = s.tokens.CompleteOnboarding(ctx, token.ID, clientID, state, accountID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStaleToken):
		return "", apperror.InvalidState(msgInvalidState)
	case errors.Is(err, repository.ErrAlreadyLinked):
		return "", apperror.Conflict(msgAlreadyLinked)
	case errors.Is(err, repository.ErrAccountTaken):
		return "", apperror.Conflict(msgAccountTaken)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.cfg.SuccessRedirect(), nil
	default:
		return "", apperror.Internal("Failed to complete onboarding", err)
	}

	log.Infof("[Onboarding] client %s linked to %s", clientID, accountID)
	return s.cfg.SuccessRedirect(), nil
}
