package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

// ClientCreator registers new tenants.
type ClientCreator interface {
	Create(ctx context.Context, name, email string) (*onboarding.CreateResult, error)
}

// ClientDirectory is the part of the client repository the account endpoints read and update.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*models.ClientAccount, error)
	List(ctx context.Context, offset, limit int) ([]models.ClientAccount, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type createAccountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// accountView is the public representation of a tenant. Secrets never leave the server.
type accountView struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Status            string      `json:"status"`
	Linked            bool        `json:"linked"`
	ProviderAccountID string      `json:"providerAccountId,omitempty"`
	APIKeyPrefix      string      `json:"apiKeyPrefix,omitempty"`
	CreatedAt         interface{} `json:"createdAt"`
}

func newAccountView(a *models.ClientAccount) accountView {
	return accountView{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		Status:            a.Status,
		Linked:            a.IsLinked(),
		ProviderAccountID: a.LinkedAccountID(),
		APIKeyPrefix:      a.APIKeyPrefix,
		CreatedAt:         formatTimePtr(&a.CreatedAt),
	}
}

// AccountsController handles tenant administration.
type AccountsController struct {
	creator ClientCreator
	clients ClientDirectory
}

func NewAccountsController(creator ClientCreator, clients ClientDirectory) *AccountsController {
	return &AccountsController{creator: creator, clients: clients}
}

// HandleCreate registers a tenant. The raw API key is only part of this response.
func (ac *AccountsController) HandleCreate(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := ac.creator.Create(c.UserContext(), req.Name, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (ac *AccountsController) HandleList(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	clients, err := ac.clients.List(c.UserContext(), offset, limit)
	if err != nil {
		return respondError(c, apperror.Internal("Failed to list clients", err))
	}

	items := make([]accountView, 0, len(clients))
	for i := range clients {
		items = append(items, newAccountView(&clients[i]))
	}
	return c.JSON(fiber.Map{
		"items":  items,
		"offset": offset,
		"limit":  limit,
	})
}

func (ac *AccountsController) HandleGet(c *fiber.Ctx) error {
	return ac.respondWithClient(c, c.Params("id"))
}

// HandleMe returns the tenant bound to the presented API key.
func (ac *AccountsController) HandleMe(c *fiber.Ctx) error {
	actor, ok := usercontext.GetActor(c)
	if !ok || !actor.IsTenant() {
		return respondError(c, apperror.Forbidden(nil))
	}
	return ac.respondWithClient(c, actor.ClientID)
}

// HandleUpdateStatus activates or deactivates a tenant. Inactive tenants cannot authenticate.
func (ac *AccountsController) HandleUpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !models.IsValidClientStatus(status) {
		return badRequest(c, "Status must be active or inactive")
	}

	id := c.Params("id")
	if err := ac.clients.UpdateStatus(c.UserContext(), id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.NotFoundOrInvalid("Client not found"))
		}
		return respondError(c, apperror.Internal("Failed to update client", err))
	}
	return ac.respondWithClient(c, id)
}

func (ac *AccountsController) respondWithClient(c *fiber.Ctx, id string) error {
	client, err := ac.clients.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.NotFoundOrInvalid("Client not found"))
		}
		return respondError(c, apperror.Internal("Failed to load client", err))
	}
	return c.JSON(newAccountView(client))
}
