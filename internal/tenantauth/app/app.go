package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/service"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/limitx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application holds the wired credential services for one process.
type Application struct {
	cfg    *Config
	logger *slog.Logger

	db store.Store

	Tokens       *service.TokenIssuer
	Accounts     *service.AccountService
	Clients      *service.ClientService
	Users        *service.UserService
	Sessions     *service.SessionService
	Signals      *service.SignalService
	Bootstrap    *service.BootstrapService
	Housekeeping *service.HousekeepingService
}

type Option func(*options)

type options struct {
	logOutput io.Writer
}

// WithLogOutput sends logs somewhere other than stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// New creates an Application with its database migrated and every service
// wired.
func New(cfg *Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tenantauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Output:  o.logOutput,
		}),
	}
	obs.Init()

	master, err := InitMasterSecret(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(master); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	return app, nil
}

func (app *Application) Logger() *slog.Logger { return app.logger }

func (app *Application) Store() store.Store { return app.db }

// Context returns ctx carrying the application logger.
func (app *Application) Context(ctx context.Context) context.Context {
	return slogx.WithContext(ctx, app.logger)
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.Database.File))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Debug("database migrations applied", "file", app.cfg.Database.File)
	return nil
}

// initServices wires the credential services
func (app *Application) initServices(master string) error {
	cipher, err := cryptox.ParseAlgorithm(app.cfg.Security.Cipher)
	if err != nil {
		return err
	}
	tokens, err := InitTokenIssuer(app.cfg, master)
	if err != nil {
		return err
	}

	limiter := limitx.New(limitx.Config{
		RequestsPerWindow: app.cfg.Auth.AttemptsPerMinute,
		Window:            time.Minute,
		Burst:             app.cfg.Auth.Burst,
	})

	app.Tokens = tokens
	app.Accounts = &service.AccountService{Store: app.db, Master: master, Cipher: cipher}
	app.Clients = &service.ClientService{
		Store:    app.db,
		Accounts: app.Accounts,
		Tokens:   tokens,
		Limiter:  limiter,
	}
	app.Users = &service.UserService{
		Store:              app.db,
		Accounts:           app.Accounts,
		Tokens:             tokens,
		Limiter:            limiter,
		EncryptRefreshKeys: app.cfg.Security.EncryptUserRefreshKeys,
	}
	app.Sessions = &service.SessionService{
		Store:   app.db,
		Clients: app.Clients,
		Users:   app.Users,
		Tokens:  tokens,
	}
	app.Signals = &service.SignalService{Store: app.db}
	app.Bootstrap = &service.BootstrapService{
		Store:     app.db,
		Accounts:  app.Accounts,
		Clients:   app.Clients,
		Token:     app.cfg.Security.BootstrapToken,
		TokenHash: app.cfg.Security.BootstrapTokenHash,
	}
	app.Housekeeping = service.NewHousekeepingService(
		app.Signals,
		app.logger,
		app.cfg.Housekeeping.Interval,
		app.cfg.Signals.MaxAge,
	)
	return nil
}

// FlushMetrics writes the metrics textfile when one is configured.
func (app *Application) FlushMetrics() {
	if app.cfg.Metrics.Textfile == "" {
		return
	}
	if err := obs.WriteTextfile(app.cfg.Metrics.Textfile); err != nil {
		app.logger.Error("failed to write metrics textfile", "path", app.cfg.Metrics.Textfile, "error", err)
	}
}

// Close flushes metrics and closes the database.
func (app *Application) Close() error {
	app.FlushMetrics()
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}
