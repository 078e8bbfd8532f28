package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/chainpayroll/payroll/internal/config"
	"github.com/chainpayroll/payroll/internal/contentstore"
	"github.com/chainpayroll/payroll/internal/directory"
	"github.com/chainpayroll/payroll/internal/journal"
	"github.com/chainpayroll/payroll/internal/middleware"
	"github.com/chainpayroll/payroll/internal/notification"
	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/session"
	"github.com/chainpayroll/payroll/internal/wallet"
	"github.com/chainpayroll/payroll/internal/workflow"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Eth      *rpc.Client
	Notifier notification.Notifier
	Logger   *slog.Logger

	// Store and Registry override the backends built from Cfg.
	Store    contentstore.Store
	Registry registry.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	store, err := contentStore(d)
	if err != nil {
		return err
	}
	reg, err := registryBackend(d)
	if err != nil {
		return err
	}

	var (
		dirRepo        directory.Repository
		rotations      journal.Journal
		sessionStore   session.Store
		challengeStore session.ChallengeStore
	)
	if d.DB != nil {
		dirRepo = directory.NewPostgresRepository(d.DB)
		rotations = journal.NewPostgresJournal(d.DB)
	} else {
		dirRepo = directory.NewMemoryRepository()
		rotations = journal.NewInMemory()
	}
	if d.Cache != nil {
		sessionStore = session.NewRedisStore(d.Cache)
		challengeStore = session.NewRedisChallengeStore(d.Cache)
	} else {
		sessionStore = session.NewMemoryStore()
		challengeStore = session.NewMemoryChallengeStore()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	var walletFallback wallet.Provider
	if d.Eth != nil {
		walletFallback = wallet.NewRPCProvider(d.Eth)
	}

	sessions := session.NewService(sessionStore, d.Cfg.SessionSecret, d.Cfg.SessionTTL)
	challenges := session.NewChallenger(challengeStore, d.Cfg.AppName, d.Cfg.ChallengeTTL)
	svc := workflow.NewService(workflow.Deps{
		Store:     store,
		Registry:  reg,
		Directory: dirRepo,
		Journal:   rotations,
		Notifier:  notifier,
		Logger:    d.Logger,
	})
	handler := workflow.NewHandler(svc, sessions, challenges)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	wallets := WalletGuards{
		Claim: middleware.WalletClaim(walletFallback),
		Proof: middleware.WalletProof(challenges),
	}
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	RegisterRegistrationRoutes(api, handler, wallets, idempotent)
	RegisterAuthRoutes(api, handler, sessions, wallets, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute))
	RegisterDashboardRoutes(api, handler, sessions, idempotent)

	return nil
}

func contentStore(d Deps) (contentstore.Store, error) {
	switch {
	case d.Store != nil:
		return d.Store, nil
	case d.Cfg.PinataJWT != "":
		return contentstore.NewPinataStore(contentstore.PinataConfig{
			JWT:        d.Cfg.PinataJWT,
			APIURL:     d.Cfg.PinataAPIURL,
			GatewayURL: d.Cfg.PinataGateway,
			Timeout:    d.Cfg.PinataTimeout,
		}, d.Logger), nil
	case d.Cfg.IsDev():
		d.Logger.Warn("PINATA_JWT not set, payloads are kept in memory")
		return contentstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("pinata is required when APP_ENV=%s", d.Cfg.Env)
	}
}

func registryBackend(d Deps) (registry.Registry, error) {
	switch {
	case d.Registry != nil:
		return d.Registry, nil
	case d.Eth != nil && d.Cfg.ContractAddress != "":
		return registry.NewContractRegistry(d.Eth, d.Cfg.ContractAddress, d.Cfg.GasLimit, d.Cfg.ReceiptPoll)
	case d.Cfg.IsDev():
		owner, err := wallet.ParseAddress(d.Cfg.OwnerAddress)
		if err != nil {
			return nil, fmt.Errorf("PAYROLL_OWNER_ADDRESS is required for the in-memory registry: %w", err)
		}
		d.Logger.Warn("no contract configured, registry is kept in memory", slog.String("owner", owner.String()))
		return registry.NewMemoryRegistry(owner), nil
	default:
		return nil, fmt.Errorf("payroll contract is required when APP_ENV=%s", d.Cfg.Env)
	}
}
