// Package server assembles the auth core, its stores and HTTP routes into
// a go-router server backed by fiber.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	auth "github.com/goliatone/go-booknook-auth"
	"github.com/goliatone/go-booknook-auth/config"
	"github.com/goliatone/go-booknook-auth/internal/telemetry"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

// Server owns the router adapter and everything it depends on
type Server struct {
	adapter  router.Server[*fiber.App]
	app      *fiber.App
	cfg      *config.Config
	logger   auth.Logger
	repo     auth.RepositoryManager
	hasher   *auth.MultiHasher
	tokens   *auth.TokenService
	metrics  *telemetry.Metrics
	closeExt func() error
}

type Option func(*Server)

func WithLogger(logger auth.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Server) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// New wires the token service, resolver, gate, services and controllers
// over db.
func New(cfg *config.Config, db *bun.DB, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  auth.NewSlogLogger(nil),
		metrics: telemetry.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.repo = auth.NewRepositoryManager(db)
	if err := s.repo.Validate(); err != nil {
		return nil, err
	}

	s.hasher = auth.NewPasswordHasher(cfg)

	validators, closeExt, err := auth.NewExternalValidators(cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.closeExt = closeExt

	s.tokens, err = auth.NewTokenService(cfg,
		auth.WithTokenLogger(s.logger),
		auth.WithExternalValidators(validators...),
		auth.WithTokenObserver(s.metrics),
	)
	if err != nil {
		closeExt()
		return nil, err
	}

	sink := auth.MultiActivitySink{
		auth.NewAuditSink(s.repo.AuditLogs(), auth.DefaultAuditActions()),
		s.metrics.ActivitySink(),
	}

	resolver := auth.NewIdentityResolver(s.tokens, s.repo.Accounts(), db,
		auth.WithResolverLogger(s.logger),
		auth.WithResolverActivitySink(sink),
		auth.WithResolutionObserver(s.metrics),
	)

	gate := auth.NewGate(resolver, s.tokens,
		auth.WithGateLogger(s.logger),
		auth.WithGateObserver(s.metrics),
	)
	guards := auth.NewGuards(gate)

	auther := auth.NewAuthenticator(s.repo, s.hasher, s.tokens, cfg).
		WithLogger(s.logger).
		WithActivitySink(sink)

	accounts := auth.NewAccountService(s.repo).
		WithLogger(s.logger).
		WithActivitySink(sink)

	s.adapter = router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "booknook-auth",
			ErrorHandler:          auth.ErrorHandler(s.logger),
			DisableStartupMessage: true,
			StrictRouting:         false,
			ReadTimeout:           30 * time.Second,
			WriteTimeout:          30 * time.Second,
		})

		app.Use(recover.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))

		// registered before the session scope so scrapes do not hold a connection
		app.Get("/metrics", s.metrics.Handler()).Name("metrics")

		app.Use(auth.SessionScope(s.repo))
		return app
	})
	s.app = s.adapter.WrappedRouter()

	r := s.adapter.Router()

	auth.RegisterAuthRoutes(r, auth.NewAuthController(auther, accounts, guards,
		auth.WithControllerLogger(s.logger),
		auth.WithControllerDebug(cfg.Debug),
	))

	auth.RegisterAdminRoutes(r, auth.NewAdminController(s.repo, accounts, guards).
		WithLogger(s.logger))

	return s, nil
}

// Bootstrap creates the configured default admin if it does not exist
func (s *Server) Bootstrap(ctx context.Context) error {
	created, err := auth.EnsureDefaultAdmin(ctx, s.repo, s.hasher, s.cfg.GetDefaultAdmin(), s.logger)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("default admin created", "email", s.cfg.DefaultAdmin.Email)
	}
	return nil
}

// App returns the fiber app behind the router adapter
func (s *Server) App() *fiber.App {
	return s.app
}

// Routes lists the routes mounted through the router
func (s *Server) Routes() []router.RouteDefinition {
	return s.adapter.Router().Routes()
}

func (s *Server) Repository() auth.RepositoryManager {
	return s.repo
}

func (s *Server) TokenService() *auth.TokenService {
	return s.tokens
}

func (s *Server) Listen() error {
	s.logger.Info("listening", "addr", s.cfg.ServerAddr)
	return s.adapter.Serve(s.cfg.ServerAddr)
}

// Shutdown stops the HTTP server and any background key refresh
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.adapter.Shutdown(ctx)
	if s.closeExt != nil {
		if cerr := s.closeExt(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
