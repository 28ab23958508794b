package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ManuelReschke/connectboard/app/controllers"
	"github.com/ManuelReschke/connectboard/app/repository"
	"github.com/ManuelReschke/connectboard/internal/pkg/archive"
	"github.com/ManuelReschke/connectboard/internal/pkg/cache"
	"github.com/ManuelReschke/connectboard/internal/pkg/credentials"
	"github.com/ManuelReschke/connectboard/internal/pkg/database"
	"github.com/ManuelReschke/connectboard/internal/pkg/env"
	"github.com/ManuelReschke/connectboard/internal/pkg/mail"
	"github.com/ManuelReschke/connectboard/internal/pkg/onboarding"
	"github.com/ManuelReschke/connectboard/internal/pkg/payments"
	"github.com/ManuelReschke/connectboard/internal/pkg/ratelimit"
	"github.com/ManuelReschke/connectboard/internal/pkg/router"
	"github.com/ManuelReschke/connectboard/internal/pkg/security"
	"github.com/ManuelReschke/connectboard/internal/pkg/stripeconnect"
	"github.com/ManuelReschke/connectboard/internal/pkg/webhooks"
	"github.com/ManuelReschke/connectboard/views"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()

	db := database.GetDB()
	if env.GetEnv("DB_AUTO_MIGRATE", "false") == "true" {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("auto migration failed: %v", err)
		}
	}

	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	ctx := context.Background()
	if err := database.SeedAdmin(ctx, repos.AdminUser, env.GetEnv("ADMIN_EMAIL", ""), env.GetEnv("ADMIN_PASSWORD", "")); err != nil {
		log.Fatalf("seeding administrator failed: %v", err)
	}

	redisBacked := env.GetEnv("RATE_LIMIT_BACKEND", "memory") == "redis"
	if redisBacked {
		cache.SetupCache()
	}

	sessions, err := security.NewSessionManager(env.GetEnv("ADMIN_SESSION_SECRET", ""), env.GetDuration("ADMIN_SESSION_TTL", security.DefaultSessionTTL))
	if err != nil {
		log.Fatalf("admin sessions: %v", err)
	}
	verifier := credentials.NewVerifier(sessions, repos.Client, repos.AdminUser)

	stripeCfg, err := stripeconnect.LoadConfig()
	if err != nil {
		log.Fatalf("stripe: %v", err)
	}
	stripeClient, err := stripeconnect.NewClient(stripeCfg, nil)
	if err != nil {
		log.Fatalf("stripe: %v", err)
	}
	if !stripeCfg.HasWebhookSecret() {
		fiberlog.Warn("[Stripe] STRIPE_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}

	flow := onboarding.NewService(repos.Client, repos.OnboardingToken, stripeClient, newNotifier(), onboarding.LoadConfig())

	ingestor := webhooks.NewIngestor(stripeconnect.NewWebhookVerifier(stripeCfg.WebhookSecret), repos.WebhookEvent, newArchiver(ctx))
	ingestor.Register(webhooks.EventAccountUpdated, webhooks.AccountUpdatedHandler(repos.Client))

	checks := map[string]controllers.Check{"database": database.Ping}
	deps := router.Dependencies{
		Authenticator: verifier,
		Limiter:       ratelimit.NewMemoryLimiter(time.Now),
		GlobalMax:     env.GetInt("RATE_LIMIT_GLOBAL_MAX", 300),
		GlobalWindow:  env.GetDuration("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
	}
	if redisBacked {
		deps.Limiter = ratelimit.NewRedisLimiter(cache.GetClient(), "ratelimit:", time.Now)
		deps.GlobalStorage = cache.NewFiberStorage()
		checks["cache"] = cache.Ping
		fiberlog.Info("[RateLimit] using Redis backend")
	}
	deps.Accounts = controllers.NewAccountsController(flow, repos.Client)
	deps.Onboarding = controllers.NewOnboardingController(flow)
	deps.Webhooks = controllers.NewWebhookController(ingestor)
	deps.Auth = controllers.NewAuthController(verifier)
	deps.Payments = controllers.NewPaymentsController(payments.NewService(repos.Client, stripeClient))
	deps.Health = controllers.NewHealthController(checks)

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:        views.NewEngine(),
		BodyLimit:    1 << 20,
		ErrorHandler: jsonErrorHandler,

		// forwarding headers are honoured only from these peers
		ProxyHeader:             env.GetEnv("PROXY_HEADER", ""),
		EnableTrustedProxyCheck: true,
		TrustedProxies:          env.GetList("TRUSTED_PROXIES"),
		EnableIPValidation:      true,
	})

	app.Use(requestid.New())

	// recovery and logging
	app.Use(recover.New(), logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid} | ${error}\n",
	}))

	// fiber metrics
	if password := env.GetEnv("METRICS_PASSWORD", ""); password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				env.GetEnv("METRICS_USER", "admin"): password,
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	if docs := findDocs(); docs != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: docs,
			Path:     "v1",
			Title:    "connectboard API",
		}))
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}

func newNotifier() onboarding.Notifier {
	cfg := mail.LoadConfig()
	if !cfg.Enabled() {
		fiberlog.Info("[Mail] SMTP not configured, onboarding invites are not sent")
		return nil
	}
	return mail.NewInviteNotifier(mail.NewSMTPMailer(cfg))
}

func newArchiver(ctx context.Context) webhooks.Archiver {
	cfg, err := archive.LoadConfig()
	if err != nil {
		log.Fatalf("webhook archive: %v", err)
	}
	if !cfg.IsEnabled() {
		return nil
	}
	archiver, err := archive.NewS3Archiver(ctx, cfg)
	if err != nil {
		log.Fatalf("webhook archive: %v", err)
	}
	return archiver
}

// findDocs locates the OpenAPI document from the project root or from cmd/connectboard.
func findDocs() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	fiberlog.Warn("[Docs] openapi.yml not found, /docs/api/v1 is disabled")
	return ""
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		fiberlog.Errorf("[HTTP] unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
