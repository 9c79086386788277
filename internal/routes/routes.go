package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bantah-app/bantah/internal/challenge"
	"github.com/bantah-app/bantah/internal/config"
	"github.com/bantah-app/bantah/internal/middleware"
	"github.com/bantah-app/bantah/internal/notification"
	"github.com/bantah-app/bantah/internal/provider"
	"github.com/bantah-app/bantah/internal/session"
	"github.com/bantah-app/bantah/internal/users"
	"github.com/bantah-app/bantah/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Verifier overrides the identity provider client. Nil builds the real
	// one from config.
	Verifier provider.Verifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Repositories fall back to in-memory stores without a database.
	var (
		userRepo      users.Repository
		notifRepo     notification.Repository
		challengeRepo challenge.Repository
		ledgerBackend wallet.Ledger
	)
	if d.DB != nil {
		userRepo = users.NewPostgresRepository(d.DB)
		notifRepo = notification.NewPostgresRepository(d.DB)
		challengeRepo = challenge.NewPostgresRepository(d.DB)
		ledgerBackend = wallet.NewPostgresLedger(d.DB)
	} else {
		userRepo = users.NewMemoryRepository()
		notifRepo = notification.NewMemoryRepository()
		challengeRepo = challenge.NewMemoryRepository()
		ledgerBackend = wallet.NewInMemory()
	}

	var telegram notification.TelegramSender
	if d.Cfg.TelegramBotToken != "" {
		tg, err := notification.NewTelegramNotifier(d.Cfg.TelegramBotToken)
		if err != nil {
			d.Logger.Warn("telegram bot unavailable", "error", err)
		} else {
			telegram = tg
		}
	}

	userService := users.NewService(userRepo, d.Cfg.AdminIDs)
	notifService := notification.NewService(notifRepo, userRepo, telegram, d.Logger)
	walletService := wallet.NewService(ledgerBackend, notifService)
	challengeService := challenge.NewService(challengeRepo, ledgerBackend, notifService)

	verifier := d.Verifier
	if verifier == nil {
		verifier = provider.NewClient(d.Cfg.PrivyAPIURL, d.Cfg.PrivyAppID, d.Cfg.PrivyAppSecret, d.Logger)
	}
	sessions := session.NewStore(d.Cache, d.Cfg.SessionSecret, d.Cfg.SessionTTL)

	walletHandler := wallet.NewHandler(walletService)
	challengeHandler := challenge.NewHandler(challengeService)
	notifHandler := notification.NewHandler(notifService)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	authn := middleware.Authenticate(verifier, userService, sessions)
	RegisterAuthRoutes(api, authn, verifier, userService, sessions, d)

	protected := api.Group("", authn)

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	RegisterWalletRoutes(protected, walletHandler, idem)
	RegisterChallengeRoutes(protected, challengeHandler, idem)
	RegisterNotificationRoutes(protected, notifHandler)

	return nil
}
