package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/credentials"
	"github.com/ManuelReschke/connectboard/internal/pkg/security"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
)

type stubAuthenticator struct{}

func (stubAuthenticator) AuthenticateAdmin(header string) (usercontext.Actor, error) {
	switch header {
	case "Bearer good":
		return usercontext.Admin("ops@example.com"), nil
	case "Bearer expired":
		return usercontext.Actor{}, security.ErrSessionExpired
	case "Bearer forged":
		return usercontext.Actor{}, security.ErrSessionInvalid
	default:
		return usercontext.Actor{}, security.ErrSessionMissing
	}
}

func (stubAuthenticator) AuthenticateAPIKey(_ context.Context, key string) (usercontext.Actor, error) {
	switch key {
	case "cb_good":
		return usercontext.Tenant("client-1"), nil
	case "cb_boom":
		return usercontext.Actor{}, apperror.Internal("Internal Server Error", assert.AnError)
	default:
		return usercontext.Actor{}, credentials.ErrInvalidCredential
	}
}

func newAuthApp(policy Policy) *fiber.App {
	app := fiber.New()
	app.Get("/", Authenticate(stubAuthenticator{}, policy), func(c *fiber.Ctx) error {
		a, _ := usercontext.GetActor(c)
		return c.SendString(string(a.Kind) + ":" + a.ClientID)
	})
	return app
}

func doAuth(t *testing.T, app *fiber.App, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestAuthenticateAdminOnly(t *testing.T) {
	app := newAuthApp(AdminOnly)

	status, body := doAuth(t, app, map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "admin:", body)

	status, body = doAuth(t, app, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	status, _ = doAuth(t, app, map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	_, malformedBody := doAuth(t, app, map[string]string{"Authorization": "Bearer"})
	_, expiredBody := doAuth(t, app, map[string]string{"Authorization": "Bearer expired"})
	status, forgedBody := doAuth(t, app, map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, expiredBody, forgedBody)
	assert.Equal(t, malformedBody, forgedBody)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, forgedBody)

	status, _ = doAuth(t, app, map[string]string{HeaderAPIKey: "cb_good"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAuthenticateTenantOnly(t *testing.T) {
	app := newAuthApp(TenantOnly)

	status, body := doAuth(t, app, map[string]string{HeaderAPIKey: "cb_good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "tenant:client-1", body)

	status, body = doAuth(t, app, map[string]string{HeaderAPIKey: "cb_unknown"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	status, _ = doAuth(t, app, map[string]string{HeaderAPIKey: "cb_boom"})
	assert.Equal(t, fiber.StatusInternalServerError, status)

	status, _ = doAuth(t, app, map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAuthenticateAdminOrTenantPrefersSession(t *testing.T) {
	app := newAuthApp(AdminOrTenant)

	status, body := doAuth(t, app, map[string]string{"Authorization": "Bearer good", HeaderAPIKey: "cb_good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "admin:", body)

	status, body = doAuth(t, app, map[string]string{HeaderAPIKey: "cb_good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "tenant:client-1", body)
}
