package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
	"github.com/ManuelReschke/connectboard/internal/pkg/credentials"
	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
	"github.com/ManuelReschke/connectboard/internal/pkg/payments"
	"github.com/ManuelReschke/connectboard/internal/pkg/usercontext"
	"github.com/ManuelReschke/connectboard/internal/pkg/webhooks"
	"github.com/ManuelReschke/connectboard/views"
)

func do(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func withActor(actor usercontext.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.SetActor(c, actor)
		return c.Next()
	}
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
		code    string
	}{
		{apperror.Validation("Missing state parameter"), 400, "Missing state parameter", ""},
		{apperror.NotFoundOrInvalid("Invalid or expired onboarding token"), 404, "Invalid or expired onboarding token", ""},
		{apperror.Upstream("Failed to create account link", "STRIPE_ACCOUNT_LINK_FAILED", errors.New("boom")), 502, "Failed to create account link", "STRIPE_ACCOUNT_LINK_FAILED"},
		{apperror.Configuration("Webhook secret not configured"), 500, "Webhook secret not configured", ""},
		{apperror.Internal("Failed to load client", errors.New("db down")), 500, "Internal Server Error", ""},
		{errors.New("unclassified"), 500, "Internal Server Error", ""},
	}

	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error { return respondError(c, tc.err) })

		resp, body := do(t, app, http.MethodGet, "/", "", nil)
		assert.Equal(t, tc.status, resp.StatusCode)
		assert.Equal(t, tc.message, body["error"])
		if tc.code == "" {
			assert.NotContains(t, body, "code")
		} else {
			assert.Equal(t, tc.code, body["code"])
		}
	}
}

func TestPagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		offset, limit := pagination(c)
		return c.JSON(fiber.Map{"offset": offset, "limit": limit})
	})

	_, body := do(t, app, http.MethodGet, "/", "", nil)
	assert.EqualValues(t, 0, body["offset"])
	assert.EqualValues(t, defaultPageSize, body["limit"])

	_, body = do(t, app, http.MethodGet, "/?offset=-3&limit=5000", "", nil)
	assert.EqualValues(t, 0, body["offset"])
	assert.EqualValues(t, maxPageSize, body["limit"])

	_, body = do(t, app, http.MethodGet, "/?offset=20&limit=10", "", nil)
	assert.EqualValues(t, 20, body["offset"])
	assert.EqualValues(t, 10, body["limit"])
}

func TestGetClientIP(t *testing.T) {
	readFrom := func(app *fiber.App, headers map[string]string) string {
		app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetClientIP(c)) })
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		return string(raw)
	}

	spoofed := map[string]string{
		"CF-Connecting-IP": "203.0.113.7",
		"X-Forwarded-For":  "198.51.100.1",
		"X-Real-IP":        "2001:db8::1",
	}

	t.Run("headers ignored without proxy config", func(t *testing.T) {
		assert.Equal(t, "0.0.0.0", readFrom(fiber.New(), spoofed))
		assert.Equal(t, "0.0.0.0", readFrom(fiber.New(), nil))
	})

	t.Run("untrusted peer cannot set the header", func(t *testing.T) {
		app := fiber.New(fiber.Config{
			ProxyHeader:             fiber.HeaderXForwardedFor,
			EnableTrustedProxyCheck: true,
			TrustedProxies:          []string{"10.0.0.1"},
			EnableIPValidation:      true,
		})
		assert.Equal(t, "0.0.0.0", readFrom(app, spoofed))
	})

	t.Run("trusted peer forwards the client address", func(t *testing.T) {
		app := fiber.New(fiber.Config{
			ProxyHeader:             fiber.HeaderXForwardedFor,
			EnableTrustedProxyCheck: true,
			TrustedProxies:          []string{"0.0.0.0"},
			EnableIPValidation:      true,
		})
		assert.Equal(t, "198.51.100.1", readFrom(app, map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}))
	})
}

type fakeCreator struct {
	result *onboarding.CreateResult
	err    error
	name   string
	email  string
}

func (f *fakeCreator) Create(_ context.Context, name, email string) (*onboarding.CreateResult, error) {
	f.name, f.email = name, email
	return f.result, f.err
}

type fakeDirectory struct {
	clients map[string]*models.ClientAccount
	err     error
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (*models.ClientAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeDirectory) List(_ context.Context, offset, limit int) ([]models.ClientAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ClientAccount
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeDirectory) UpdateStatus(_ context.Context, id, status string) error {
	c, ok := f.clients[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	return nil
}

func newDirectory() *fakeDirectory {
	linked := "acct_123"
	return &fakeDirectory{clients: map[string]*models.ClientAccount{
		"c-1": {ID: "c-1", Name: "Acme", Email: "ops@acme.test", Status: models.CLIENT_STATUS_ACTIVE, APIKeyHash: "secret-hash", APIKeyPrefix: "cb_live_ab12", ProviderAccountID: &linked},
	}}
}

func TestAccountsCreate(t *testing.T) {
	creator := &fakeCreator{result: &onboarding.CreateResult{ClientID: "c-9", Name: "Acme", OnboardingToken: "tok", APIKey: "cb_live_raw"}}
	ac := NewAccountsController(creator, newDirectory())
	app := fiber.New()
	app.Post("/accounts", ac.HandleCreate)

	resp, body := do(t, app, http.MethodPost, "/accounts", `{"name":"Acme","email":"ops@acme.test"}`, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "c-9", body["clientId"])
	assert.Equal(t, "cb_live_raw", body["apiKey"])
	assert.Equal(t, "Acme", creator.name)
	assert.Equal(t, "ops@acme.test", creator.email)

	creator.err = apperror.Validation("A valid email is required")
	resp, body = do(t, app, http.MethodPost, "/accounts", `{"name":"Acme","email":"nope"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "A valid email is required", body["error"])

	resp, _ = do(t, app, http.MethodPost, "/accounts", `{"name":`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAccountsListHidesSecrets(t *testing.T) {
	ac := NewAccountsController(&fakeCreator{}, newDirectory())
	app := fiber.New()
	app.Get("/accounts", ac.HandleList)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"providerAccountId":"acct_123"`)
	assert.Contains(t, string(raw), `"linked":true`)
	assert.NotContains(t, string(raw), "secret-hash")
}

func TestAccountsUpdateStatus(t *testing.T) {
	dir := newDirectory()
	ac := NewAccountsController(&fakeCreator{}, dir)
	app := fiber.New()
	app.Patch("/accounts/:id/status", ac.HandleUpdateStatus)

	resp, body := do(t, app, http.MethodPatch, "/accounts/c-1/status", `{"status":"Inactive"}`, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "inactive", body["status"])
	assert.Equal(t, models.CLIENT_STATUS_INACTIVE, dir.clients["c-1"].Status)

	resp, _ = do(t, app, http.MethodPatch, "/accounts/c-1/status", `{"status":"banned"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodPatch, "/accounts/missing/status", `{"status":"active"}`, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Client not found", body["error"])
}

func TestAccountsMe(t *testing.T) {
	ac := NewAccountsController(&fakeCreator{}, newDirectory())
	app := fiber.New()
	app.Get("/tenant/me", withActor(usercontext.Tenant("c-1")), ac.HandleMe)
	app.Get("/admin/me", withActor(usercontext.Admin("admin@example.com")), ac.HandleMe)

	resp, body := do(t, app, http.MethodGet, "/tenant/me", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "c-1", body["id"])

	resp, _ = do(t, app, http.MethodGet, "/admin/me", "", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

type fakeFlow struct {
	link     string
	target   string
	err      error
	token    string
	callback onboarding.CallbackInput
}

func (f *fakeFlow) RequestSetupLink(_ context.Context, token string) (string, error) {
	f.token = token
	return f.link, f.err
}

func (f *fakeFlow) RefreshLink(ctx context.Context, token string) (string, error) {
	return f.RequestSetupLink(ctx, token)
}

func (f *fakeFlow) CompleteCallback(_ context.Context, in onboarding.CallbackInput) (string, error) {
	f.callback = in
	return f.target, f.err
}

func newOnboardingApp(flow *fakeFlow) *fiber.App {
	oc := NewOnboardingController(flow)
	app := fiber.New(fiber.Config{Views: views.NewEngine()})
	app.Get("/onboard-client", oc.HandleSetupLink)
	app.Get("/onboard-client/refresh", oc.HandleRefresh)
	app.Get("/connect/callback", oc.HandleCallback)
	app.Get("/onboarding/complete", oc.HandleComplete)
	return app
}

func TestOnboardingSetupLink(t *testing.T) {
	flow := &fakeFlow{link: "https://connect.example/setup/1"}
	app := newOnboardingApp(flow)

	resp, body := do(t, app, http.MethodGet, "/onboard-client?token=tok-1", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://connect.example/setup/1", body["url"])
	assert.Equal(t, "tok-1", flow.token)

	flow.err = apperror.NotFoundOrInvalid("Invalid or expired onboarding token")
	resp, body = do(t, app, http.MethodGet, "/onboard-client?token=used", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid or expired onboarding token", body["error"])
}

func TestOnboardingRefreshRedirects(t *testing.T) {
	app := newOnboardingApp(&fakeFlow{link: "https://connect.example/setup/2"})

	resp, _ := do(t, app, http.MethodGet, "/onboard-client/refresh?token=tok-1", "", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://connect.example/setup/2", resp.Header.Get(fiber.HeaderLocation))
}

func TestOnboardingCallback(t *testing.T) {
	flow := &fakeFlow{target: "https://app.example.com/onboarding/complete"}
	app := newOnboardingApp(flow)

	resp, _ := do(t, app, http.MethodGet, "/connect/callback?client_id=c-1&account=acct_1&state=s1", "", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example.com/onboarding/complete", resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, onboarding.CallbackInput{ClientID: "c-1", AccountID: "acct_1", State: "s1"}, flow.callback)

	flow.err = apperror.InvalidState("Invalid or expired state")
	resp, body := do(t, app, http.MethodGet, "/connect/callback?client_id=c-2&account=acct_1&state=s1", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid or expired state", body["error"])
}

func TestOnboardingCompletePage(t *testing.T) {
	app := newOnboardingApp(&fakeFlow{})

	req := httptest.NewRequest(http.MethodGet, "/onboarding/complete", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "<title>Onboarding complete</title>")
	assert.Contains(t, string(raw), "payout account is connected")
}

type fakeIngestor struct {
	result  webhooks.Result
	err     error
	payload []byte
	header  string
}

func (f *fakeIngestor) Ingest(_ context.Context, payload []byte, header string) (webhooks.Result, error) {
	f.payload, f.header = payload, header
	return f.result, f.err
}

func TestWebhookAcknowledges(t *testing.T) {
	ingestor := &fakeIngestor{result: webhooks.Result{EventID: "evt_1", Type: "account.updated", Duplicate: true}}
	app := fiber.New()
	app.Post("/webhooks/stripe", NewWebhookController(ingestor).HandleStripe)

	payload := `{"id":"evt_1","type":"account.updated"}`
	resp, body := do(t, app, http.MethodPost, "/webhooks/stripe", payload, map[string]string{HeaderStripeSignature: "t=1,v1=abc"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, payload, string(ingestor.payload))
	assert.Equal(t, "t=1,v1=abc", ingestor.header)

	ingestor.result = webhooks.Result{EventID: "evt_2", DispatchErr: errors.New("handler failed")}
	resp, _ = do(t, app, http.MethodPost, "/webhooks/stripe", payload, map[string]string{HeaderStripeSignature: "t=1,v1=abc"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	ingestor.err = apperror.Validation("Webhook signature verification failed")
	resp, body = do(t, app, http.MethodPost, "/webhooks/stripe", payload, map[string]string{HeaderStripeSignature: "t=1,v1=bad"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Webhook signature verification failed", body["error"])
}

type fakeLogin struct {
	token string
	err   error
}

func (f *fakeLogin) Login(_ context.Context, email, password string) (string, time.Duration, error) {
	return f.token, 8 * time.Hour, f.err
}

func TestAuthLogin(t *testing.T) {
	login := &fakeLogin{token: "jwt-token"}
	app := fiber.New()
	app.Post("/auth/login", NewAuthController(login).HandleLogin)

	resp, body := do(t, app, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"pw"}`, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "jwt-token", body["token"])
	assert.Equal(t, "Bearer", body["tokenType"])
	assert.EqualValues(t, 8*3600, body["expiresIn"])

	login.err = credentials.ErrInvalidCredential
	resp, body = do(t, app, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"wrong"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["error"])

	login.err = apperror.Validation("Email and password are required")
	resp, _ = do(t, app, http.MethodPost, "/auth/login", `{"email":""}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

type fakeIntents struct {
	clientID string
	req      payments.Request
	err      error
}

func (f *fakeIntents) CreatePaymentIntent(_ context.Context, clientID string, req payments.Request) (*payments.Intent, error) {
	f.clientID, f.req = clientID, req
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method", Amount: req.Amount, Currency: "eur"}, nil
}

func TestPaymentsTenantUsesOwnAccount(t *testing.T) {
	intents := &fakeIntents{}
	pc := NewPaymentsController(intents)
	app := fiber.New()
	app.Post("/payments/intents", withActor(usercontext.Tenant("c-1")), pc.HandleCreateIntent)

	resp, body := do(t, app, http.MethodPost, "/payments/intents", `{"amount":1500,"currency":"EUR"}`, map[string]string{HeaderIdempotencyKey: "order-42"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pi_1", body["id"])
	assert.Equal(t, "c-1", intents.clientID)
	assert.Equal(t, "order-42", intents.req.IdempotencyKey)
	assert.EqualValues(t, 1500, intents.req.Amount)

	resp, _ = do(t, app, http.MethodPost, "/payments/intents", `{"clientId":"c-2","amount":1500,"currency":"EUR"}`, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestPaymentsAdminNamesClient(t *testing.T) {
	intents := &fakeIntents{}
	pc := NewPaymentsController(intents)
	app := fiber.New()
	app.Post("/payments/intents", withActor(usercontext.Admin("admin@example.com")), pc.HandleCreateIntent)

	resp, body := do(t, app, http.MethodPost, "/payments/intents", `{"amount":1500,"currency":"EUR"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "clientId is required", body["error"])

	resp, _ = do(t, app, http.MethodPost, "/payments/intents", `{"clientId":"c-2","amount":1500,"currency":"EUR"}`, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "c-2", intents.clientID)

	intents.err = apperror.Upstream("Failed to create payment intent", payments.CodePaymentIntentFailed, errors.New("card_error"))
	resp, body = do(t, app, http.MethodPost, "/payments/intents", `{"clientId":"c-2","amount":1500,"currency":"EUR"}`, nil)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, payments.CodePaymentIntentFailed, body["code"])
}

func TestHealth(t *testing.T) {
	healthy := NewHealthController(map[string]Check{
		"database": func(context.Context) error { return nil },
	})
	degraded := NewHealthController(map[string]Check{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	})
	app := fiber.New()
	app.Get("/ok", healthy.HandleHealth)
	app.Get("/degraded", degraded.HandleHealth)

	resp, body := do(t, app, http.MethodGet, "/ok", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = do(t, app, http.MethodGet, "/degraded", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "up", checks["database"])
	assert.Equal(t, "down", checks["cache"])
}
