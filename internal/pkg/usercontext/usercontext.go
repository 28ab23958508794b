package usercontext

import "github.com/gofiber/fiber/v2"

// ActorKind tags who is calling.
type ActorKind string

const (
	ActorAdmin  ActorKind = "admin"
	ActorTenant ActorKind = "tenant"
)

// Actor is the authenticated caller of a request, resolved once by middleware.
// ClientID is only set for tenants; Subject is the admin identity for admins.
type Actor struct {
	Kind     ActorKind `json:"kind"`
	Subject  string    `json:"subject,omitempty"`
	ClientID string    `json:"client_id,omitempty"`
}

func Admin(subject string) Actor {
	return Actor{Kind: ActorAdmin, Subject: subject}
}

func Tenant(clientID string) Actor {
	return Actor{Kind: ActorTenant, ClientID: clientID}
}

func (a Actor) IsAdmin() bool {
	return a.Kind == ActorAdmin
}

func (a Actor) IsTenant() bool {
	return a.Kind == ActorTenant && a.ClientID != ""
}

// SetActor stores the actor for the rest of the request.
func SetActor(c *fiber.Ctx, a Actor) {
	c.Locals(KeyActor, a)
	c.Locals(KeyIsAdmin, a.IsAdmin())
	if a.ClientID != "" {
		c.Locals(KeyClientID, a.ClientID)
	}
}

// GetActor retrieves the actor from fiber context.
// The second value is false on unauthenticated requests.
func GetActor(c *fiber.Ctx) (Actor, bool) {
	a, ok := c.Locals(KeyActor).(Actor)
	return a, ok
}

// IsAdmin checks if the current caller is an admin
func IsAdmin(c *fiber.Ctx) bool {
	a, ok := GetActor(c)
	return ok && a.IsAdmin()
}

// GetClientID returns the calling tenant's id, or empty string for admins and anonymous callers
func GetClientID(c *fiber.Ctx) string {
	a, _ := GetActor(c)
	return a.ClientID
}
