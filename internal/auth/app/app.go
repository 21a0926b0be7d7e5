package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
	httpapi "github.com/moduhq/modu/internal/auth/http"
	"github.com/moduhq/modu/internal/auth/mail"
	"github.com/moduhq/modu/internal/auth/provider"
	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/internal/auth/store/drivers/sqlite"
	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/jwtx"
	"github.com/moduhq/modu/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	keys     *jwtx.KeySet
	verifier jwtx.Verifier

	tokenService    *service.TokenService
	authService     *service.AuthService
	passwordService *service.PasswordService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initKeys(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initKeys loads the signing key and builds the verifier over its key set
func (app *Application) initKeys() error {
	signer, err := loadOrGenerateSigner(app.cfg, app.logger)
	if err != nil {
		return err
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return fmt.Errorf("failed to register signing key: %w", err)
	}

	app.keys = keys
	app.verifier = jwtx.NewVerifierRS256(keys, app.cfg.Issuer, app.cfg.Audience)

	app.tokenService = &service.TokenService{
		Signer:        signer,
		Verifier:      app.verifier,
		Store:         app.db,
		Issuer:        app.cfg.Issuer,
		Audience:      app.cfg.Audience,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		RememberMeTTL: app.cfg.RememberMeTTL,
	}
	return nil
}

// initServices initializes the business logic services
func (app *Application) initServices() {
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderGoogle, provider.NewGoogle(nil))
	registry.Register(domain.ProviderKakao, provider.NewKakao(nil))
	registry.Register(domain.ProviderNaver, provider.NewNaver(nil))
	registry.Register(domain.ProviderApple, provider.NewApple(nil, app.cfg.AppleClientID))

	app.authService = &service.AuthService{
		Store:     app.db,
		Tokens:    app.tokenService,
		Providers: registry,
	}

	app.passwordService = &service.PasswordService{
		Store:  app.db,
		Tokens: app.tokenService,
		Mail:   mail.NewSMTPSender(app.cfg.SMTP),
		OtpTTL: app.cfg.OtpTTL,
		Log:    app.logger,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.PasswordService = app.passwordService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
