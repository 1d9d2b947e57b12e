package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/google"
	httpapi "github.com/aussiebroadwan/iamcore/internal/auth/http"
	"github.com/aussiebroadwan/iamcore/internal/auth/ledger"
	"github.com/aussiebroadwan/iamcore/internal/auth/otp"
	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/iamcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/iamcore/pkg/otelx"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns the long-lived dependencies of the service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	otel  *otelx.Provider
	db    store.Store
	redis *redis.Client

	ledger       ledger.Ledger
	ledgerCheck  func(context.Context) error
	authService  *service.AuthService
	userService  *service.UserService
	registry     *policy.Registry
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and connects every dependency. On error whatever was
// already opened is closed.
func New(ctx context.Context, cfg Config) (_ *Application, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "iamcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	defer func() {
		if err != nil {
			app.closeAll(context.Background())
		}
	}()

	app.otel, err = otelx.Setup(ctx, cfg.OTel(BuildVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initLedger(ctx); err != nil {
		return nil, err
	}

	keys, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth keys: %w", err)
	}
	if err := app.initServices(keys); err != nil {
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run serves until ctx is cancelled, SIGINT/SIGTERM arrives, or the server
// fails.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.housekeeping != nil {
		app.housekeeping.Start()
	}

	app.logger.Info("iamcore starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"ledger", app.cfg.LedgerBackend,
		"tracing", app.otel.Enabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Shutdown drains in-flight requests within the grace period, then stops
// housekeeping and closes connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down iamcore...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeeping != nil {
		app.housekeeping.Stop()
	}

	err := app.closeAll(ctx)
	app.logger.Info("iamcore stopped")
	return err
}

func (app *Application) closeAll(ctx context.Context) error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.otel != nil {
		errs = append(errs, app.otel.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// connectBackoff retries startup connections for roughly half a minute, so
// the service can start alongside its database.
func connectBackoff() retry.Backoff {
	b := retry.NewExponential(250 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxDuration(30*time.Second, b)
}

func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		err := retry.Do(ctx, connectBackoff(), func(ctx context.Context) error {
			st, err := postgres.NewStore(ctx, app.cfg.DatabaseURL)
			if err != nil {
				app.logger.Warn("database not ready, retrying", "error", err)
				return retry.RetryableError(err)
			}
			app.db = st
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		st, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = st
	}

	if err := app.db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initLedger(ctx context.Context) error {
	switch app.cfg.LedgerBackend {
	case LedgerRedis:
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		err := retry.Do(ctx, connectBackoff(), func(ctx context.Context) error {
			if err := app.redis.Ping(ctx).Err(); err != nil {
				app.logger.Warn("redis not ready, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.ledger = ledger.NewRedis(app.redis, app.cfg.RedisPrefix)
		app.ledgerCheck = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	case LedgerMemory:
		app.logger.Warn("memory refresh ledger in use, sessions do not survive a restart")
		app.ledger = ledger.NewMemory()
	default:
		app.ledger = ledger.NewStore(app.db)
	}
	return nil
}

func (app *Application) initServices(keys Keys) error {
	var verifier service.GoogleVerifier
	if app.cfg.GoogleClientID != "" {
		v, err := google.NewRemoteVerifier(app.cfg.GoogleClientID, app.cfg.GoogleJWKSURL, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize google verifier: %w", err)
		}
		verifier = v
	} else {
		app.logger.Info("AUTH_GOOGLE_CLIENT_ID is not set, google sign-in disabled")
	}

	app.authService = &service.AuthService{
		Store:      app.db,
		Ledger:     app.ledger,
		Hasher:     keys.Hasher,
		Tokens:     service.NewIssuer(keys.Signer, app.cfg.AccessTTL, app.cfg.RefreshTTL),
		OTP:        otp.New(app.cfg.TFAAppName),
		Secrets:    keys.Secrets,
		Google:     verifier,
		TFAAppName: app.cfg.TFAAppName,

		RequireTFAConfirmation: app.cfg.TFARequireConfirmation,
	}
	app.registry = policy.NewDefaultRegistry()
	app.registry.Seal()
	app.userService = &service.UserService{Store: app.db, Ledger: app.ledger, Registry: app.registry}

	if sw, ok := app.ledger.(service.Sweeper); ok {
		app.housekeeping = service.NewHousekeepingService(sw, app.logger, app.cfg.HousekeepingInterval)
	}
	return nil
}

func (app *Application) initHTTP() error {
	router, err := httpapi.NewRouter(httpapi.Deps{
		Auth:        app.authService,
		Users:       app.userService,
		Registry:    app.registry,
		Store:       app.db,
		LedgerCheck: app.ledgerCheck,
		Limits:      app.cfg.RateLimits(),
		Version:     BuildVersion,
		Logger:      app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// Migrate applies the schema and exits; used by the migrate command.
func Migrate(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	app := &Application{cfg: cfg, logger: slogx.New(slogx.Config{
		Service: "iamcore",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})}
	defer func() { _ = app.closeAll(ctx) }()
	return app.initDatabase(ctx)
}
