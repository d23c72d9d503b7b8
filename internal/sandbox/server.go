package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/paypath/paypath/internal/middleware"
	"github.com/paypath/paypath/internal/wallet"
)

// Config captures sandbox backend settings.
type Config struct {
	Address      string
	Domain       string
	Statement    string
	JWTSecret    string
	TokenTTL     time.Duration
	ChallengeTTL time.Duration
	// FiatRate is fiat units per whole stablecoin; FeeNum/FeeDen is the
	// transfer fee fraction.
	FiatRate int64
	FeeNum   int64
	FeeDen   int64
	// TreasuryAddress receives order payments on-chain.
	TreasuryAddress string
	// SettleAfterPolls is how many status reads a confirmed order takes to
	// reach completed.
	SettleAfterPolls int
	KycBaseURL       string
}

func (c Config) withDefaults() Config {
	if c.Domain == "" {
		c.Domain = "paypath.app"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 5 * time.Minute
	}
	if c.FiatRate == 0 {
		c.FiatRate = 25_000
	}
	if c.FeeDen == 0 {
		c.FeeNum, c.FeeDen = 2, 1000
	}
	if c.SettleAfterPolls == 0 {
		c.SettleAfterPolls = 2
	}
	if c.KycBaseURL == "" {
		c.KycBaseURL = "https://kyc.paypath.app/flow"
	}
	return c
}

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    Config
	store  Store
	nonces Nonces
	cache  *redis.Client
	logger *slog.Logger
}

// Option tweaks optional server dependencies.
type Option func(*Server)

// WithCache supplies the Redis client backing challenge rate limiting and
// order idempotency. Without it those middlewares pass requests through.
func WithCache(client *redis.Client) Option {
	return func(s *Server) {
		s.cache = client
	}
}

// New instantiates the sandbox backend and wires its routes.
func New(cfg Config, store Store, nonces Nonces, logger *slog.Logger, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	if cfg.TreasuryAddress == "" {
		if ks, err := wallet.NewEphemeralKeystore(); err == nil {
			cfg.TreasuryAddress = ks.Address()
		}
	}
	app := fiber.New(fiber.Config{
		AppName:      "PayPath Sandbox",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler,
	})

	s := &Server{app: app, cfg: cfg, store: store, nonces: nonces, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) routes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.RequestLogger(s.logger))

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	auth := s.app.Group("/auth")
	auth.Get("/challenge", middleware.ChallengeRateLimit(s.cache, 10), s.handleChallenge)
	auth.Post("/verify", s.handleVerify)
	auth.Post("/register", s.requireAuth, s.handleRegister)

	users := s.app.Group("/users", s.requireAuth)
	users.Get("/profile", s.handleProfile)
	users.Patch("/profile", s.handleUpdateProfile)
	users.Get("/check-username", s.handleCheckUsername)
	users.Patch("/profile/username", s.handleChangeUsername)
	users.Get("/lookup", s.handleLookup)

	wallet := s.app.Group("/wallet", s.requireAuth)
	wallet.Get("/onchain", s.handleListWallets)
	wallet.Post("/onchain/add", s.handleAddWallet)
	wallet.Delete("/onchain/:id", s.handleDeleteWallet)
	wallet.Get("/offchain", s.handleListBanks)
	wallet.Post("/offchain/add", s.handleAddBank)
	wallet.Delete("/offchain/:id", s.handleDeleteBank)

	methods := s.app.Group("/payment-methods", s.requireAuth)
	methods.Get("/default", s.handleGetDefault)
	methods.Post("/default", s.handleSetDefault)

	kyc := s.app.Group("/kyc", s.requireAuth)
	kyc.Post("/get-link", s.handleKycLink)
	kyc.Get("/status", s.handleKycStatus)

	s.app.Post("/transfer/scan", s.requireAuth, s.handleScan)

	payments := s.app.Group("/payments", s.requireAuth)
	payments.Post("/quote", s.handleQuote)
	payments.Post("/orders", middleware.OrderIdempotency(s.cache, time.Hour, s.logger), s.handleCreateOrder)
	payments.Get("/orders/:id", s.handleGetOrder)
	payments.Post("/orders/:id/confirm-user-payment", s.handleConfirmOrder)
	payments.Post("/orders/:id/sync", s.handleSyncOrder)
}

// Listen starts the HTTP server on the configured address.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address)
}

// Listener serves on an existing listener. Tests use it with a loopback port.
func (s *Server) Listener(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// data wraps a payload in the response envelope the client unwraps.
func data(c *fiber.Ctx, payload any) error {
	return c.JSON(fiber.Map{"data": payload})
}
