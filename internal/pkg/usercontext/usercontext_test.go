package usercontext

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorRoundTripThroughLocals(t *testing.T) {
	app := fiber.New()
	app.Get("/tenant", func(c *fiber.Ctx) error {
		_, ok := GetActor(c)
		assert.False(t, ok)

		SetActor(c, Tenant("client-1"))
		a, ok := GetActor(c)
		require.True(t, ok)
		assert.True(t, a.IsTenant())
		assert.False(t, IsAdmin(c))
		assert.Equal(t, "client-1", GetClientID(c))
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/admin", func(c *fiber.Ctx) error {
		SetActor(c, Admin("ops@example.com"))
		assert.True(t, IsAdmin(c))
		assert.Equal(t, "", GetClientID(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, path := range []string{"/tenant", "/admin"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestTenantWithoutClientIDIsNotTenant(t *testing.T) {
	assert.False(t, Actor{Kind: ActorTenant}.IsTenant())
}
