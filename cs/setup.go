package cs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roessland/coachsync/bridge"
	"github.com/roessland/coachsync/notify"
	"github.com/roessland/coachsync/pkg/output"
	"github.com/roessland/coachsync/store"
	"github.com/roessland/coachsync/trainerroad"
)

const appName = "coachsync"

// App bundles the wired dependencies of a command
type App struct {
	Config       Config
	Output       *output.OutputLogger
	Logger       output.Logger
	Presentation *PresentationService
	Service      *bridge.Service
	Principal    bridge.Principal

	closers []func()
}

// Close releases the store connection
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Option adjusts how an App is wired, mostly for tests
type Option func(*appOptions)

type appOptions struct {
	transport http.RoundTripper
	output    *output.OutputLogger
}

// WithTransport overrides the upstream HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(o *appOptions) { o.transport = rt }
}

// WithOutput uses ol instead of creating a fresh output logger
func WithOutput(ol *output.OutputLogger) Option {
	return func(o *appOptions) { o.output = ol }
}

// setupDependencies creates the output logger, store, notifier and service
func setupDependencies(ctx context.Context, config Config, component string, opts ...Option) (*App, error) {
	if config.LocalUser == "" {
		return nil, fmt.Errorf("local_user must be set")
	}
	if err := config.validateStore(); err != nil {
		return nil, err
	}

	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	ol := o.output
	if ol == nil {
		var err error
		ol, err = output.New(config.JSONMode)
		if err != nil {
			return nil, fmt.Errorf("failed to create output system: %w", err)
		}
	}
	logger := ol.Component(component)

	app := &App{
		Config:       config,
		Output:       ol,
		Logger:       logger,
		Presentation: NewPresentationService(ol),
		Principal:    bridge.Principal{ID: config.LocalUser, Email: config.NotifyEmail},
	}

	sessions, closeStore, err := OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	clientOpts := []trainerroad.Option{trainerroad.WithLogger(ol.Component("trainerroad").Slog())}
	if o.transport != nil {
		clientOpts = append(clientOpts, trainerroad.WithTransport(o.transport))
	}

	app.Service = bridge.NewService(bridge.Deps{
		Upstream: trainerroad.New(config.Platform, clientOpts...),
		Store:    sessions,
		Notifier: newNotifier(config, ol.Component("notify")),
		Logger:   ol.Component("bridge"),
	})
	return app, nil
}

// OpenStore opens the configured session store, sealed when a key is set
func OpenStore(ctx context.Context, config Config) (bridge.SessionStore, func(), error) {
	if err := config.validateStore(); err != nil {
		return nil, nil, err
	}

	var backend store.Backend
	var closeFn func()
	switch config.StoreDriver {
	case DriverPostgres:
		pool, err := store.OpenPostgres(ctx, config.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		backend = store.NewPostgresStore(pool)
		closeFn = pool.Close
	default:
		db, err := store.OpenSQLite(config.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		backend = store.NewSQLiteStore(db)
		closeFn = func() { _ = db.Close() }
	}

	if config.SealKey == "" {
		return backend, closeFn, nil
	}
	sealer, err := store.NewSealer(config.SealKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("invalid store.seal_key: %w", err)
	}
	return store.Sealed(backend, sealer), closeFn, nil
}

// newNotifier sends through Resend when an API key is configured and logs otherwise
func newNotifier(config Config, logger output.Logger) bridge.Notifier {
	var sender notify.Sender = notify.NewNoopSender()
	if config.ResendAPIKey != "" && config.EmailFrom != "" {
		sender = notify.NewResendSender(config.ResendAPIKey, config.EmailFrom)
	} else {
		logger.Debug("email not configured, expiry notices are only logged")
	}
	return notify.NewExpiryNotifier(sender, appName, appName+" connect", logger.Slog())
}
