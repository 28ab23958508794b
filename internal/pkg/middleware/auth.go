package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/connectboard/internal/pkg/credentials"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

// Authenticator resolves callers from their presented credentials.
type Authenticator interface {
	AuthenticateAdmin(authorization string) (usercontext.Actor, error)
	AuthenticateAPIKey(ctx context.Context, key string) (usercontext.Actor, error)
}

// Policy lists the actor kinds a route accepts.
type Policy struct {
	Admin  bool
	Tenant bool
}

var (
	AdminOnly     = Policy{Admin: true}
	TenantOnly    = Policy{Tenant: true}
	AdminOrTenant = Policy{Admin: true, Tenant: true}
)

// Authenticate resolves the actor once per request and stores it in the context.
// Bearer sessions are tried before API keys. Failures carry no detail: any
// missing, malformed, expired or rejected credential is 401, and a valid
// credential of a kind the route does not accept is 403.
func Authenticate(auth Authenticator, policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := extractAuthorization(c)
		apiKey := extractAPIKeyFromHeader(c)

		switch {
		case authorization != "" && policy.Admin:
			actor, err := auth.AuthenticateAdmin(authorization)
			if err != nil {
				return unauthorized(c)
			}
			usercontext.SetActor(c, actor)
			return c.Next()

		case apiKey != "" && policy.Tenant:
			actor, err := auth.AuthenticateAPIKey(c.UserContext(), apiKey)
			if err != nil {
				if errors.Is(err, credentials.ErrInvalidCredential) {
					return unauthorized(c)
				}
				log.Errorf("[Auth] api key verification failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
			}
			usercontext.SetActor(c, actor)
			return c.Next()

		case authorization != "" || apiKey != "":
			return forbidden(c)

		default:
			return unauthorized(c)
		}
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
}
