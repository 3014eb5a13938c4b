package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/frenchtutorhub/hub/pkg/credstore"
	credredis "github.com/frenchtutorhub/hub/pkg/credstore/drivers/redis"
	"github.com/frenchtutorhub/hub/pkg/credstore/drivers/sqlite"
	"github.com/frenchtutorhub/hub/pkg/cryptox"
	"github.com/frenchtutorhub/hub/pkg/httpx"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/frenchtutorhub/hub/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// sealInfo separates the token-sealing key from other uses of the
	// master key.
	sealInfo = "hubctl/credentials"
)

// Application wires the credential store and the API client for one CLI
// invocation.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store  *credstore.Store
	client *hubsdk.Client
	db     *sqlite.Store

	closers []func() error
}

// Option tweaks an Application before the client is built. Tests use it to
// inject a transport or a pre-built Redis client.
type Option func(*options)

type options struct {
	redis        redis.UniversalClient
	clientConfig func(*hubsdk.Config)
}

// WithRedisClient makes the redis backend use rdb instead of dialing
// Config.RedisAddr. The caller keeps ownership of rdb.
func WithRedisClient(rdb redis.UniversalClient) Option {
	return func(o *options) { o.redis = rdb }
}

// WithClientConfig lets the caller adjust the hubsdk config last.
func WithClientConfig(fn func(*hubsdk.Config)) Option {
	return func(o *options) { o.clientConfig = fn }
}

// New creates an Application for cfg.
func New(cfg Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "hubctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(&o); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.initClient(&o); err != nil {
		_ = app.Close()
		return nil, err
	}

	return app, nil
}

func (app *Application) initStore(o *options) error {
	longLived, session, err := app.openScopes(o)
	if err != nil {
		return err
	}

	sealer, err := app.loadSealer()
	if err != nil {
		return err
	}
	if sealer != nil {
		longLived = credstore.Sealed(longLived, sealer)
		session = credstore.Sealed(session, sealer)
	}

	store, err := credstore.New(credstore.Options{
		LongLived: longLived,
		Session:   session,
		CookieURL: app.cfg.BaseURL,
		Logger:    app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}
	app.store = store
	return nil
}

// openScopes returns the long-lived and session scopes of the configured
// backend. With sqlite the session scope lives as long as the process.
func (app *Application) openScopes(o *options) (credstore.Scope, credstore.Scope, error) {
	switch app.cfg.Store {
	case StoreMemory:
		return credstore.NewMemoryScope(), credstore.NewMemoryScope(), nil

	case StoreSQLite, "":
		if err := os.MkdirAll(filepath.Dir(app.cfg.DatabaseFile), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create credentials directory: %w", err)
		}
		db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open credentials database: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		app.db = db
		if err := db.ApplyMigrations(); err != nil {
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.logger.Debug("sqlite credential store ready", "path", app.cfg.DatabaseFile)
		return db.Scope(app.cfg.Profile, "long"), credstore.NewMemoryScope(), nil

	case StoreRedis:
		rdb := o.redis
		if rdb == nil {
			client := redis.NewClient(&redis.Options{
				Addr:     app.cfg.RedisAddr,
				Password: app.cfg.RedisPassword,
				DB:       app.cfg.RedisDB,
			})
			app.closers = append(app.closers, client.Close)
			rdb = client
		}
		prefix := "hubctl:" + app.cfg.Profile
		long := credredis.NewScope(rdb, prefix+":long", 0)
		if err := long.Ping(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", app.cfg.RedisAddr, err)
		}
		return long, credredis.NewScope(rdb, prefix+":session", app.cfg.SessionTTL), nil

	default:
		return nil, nil, fmt.Errorf("unknown credential store %q (want %s, %s or %s)",
			app.cfg.Store, StoreSQLite, StoreMemory, StoreRedis)
	}
}

// loadSealer returns nil when no master key is configured. The key file
// wins over the inline key.
func (app *Application) loadSealer() (*cryptox.Sealer, error) {
	var secret []byte
	switch {
	case app.cfg.MasterKeyPath != "":
		s, err := cryptox.LoadSecret(app.cfg.MasterKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load master key: %w", err)
		}
		secret = s
	case app.cfg.MasterKey != "":
		secret = []byte(app.cfg.MasterKey)
	default:
		return nil, nil
	}

	sealer, err := cryptox.NewSealer(secret, sealInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}
	return sealer, nil
}

func (app *Application) initClient(o *options) error {
	cfg := hubsdk.Config{
		BaseURL:            app.cfg.BaseURL,
		Credentials:        app.store,
		Timeout:            app.cfg.Timeout,
		RateLimit:          httpx.ParseRateLimitFromEnv("CLIENT", httpx.ClientLimit),
		UserAgent:          "hubctl/" + BuildVersion,
		Logger:             app.logger,
		CoalesceRefresh:    app.cfg.CoalesceRefresh,
		DisableSessionSync: !app.cfg.SessionSync,
		OnCredentialsCleared: func(ctx context.Context) {
			slogx.FromContext(ctx).Info("session expired, credentials cleared", "profile", app.cfg.Profile)
		},
	}
	if app.cfg.CSRFToken != "" {
		cfg.CSRF = hubsdk.StaticCSRF(app.cfg.CSRFToken)
	}
	if o.clientConfig != nil {
		o.clientConfig(&cfg)
	}

	client, err := hubsdk.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	app.client = client
	return nil
}

// Client returns the API client.
func (app *Application) Client() *hubsdk.Client { return app.client }

// Store returns the credential store.
func (app *Application) Store() *credstore.Store { return app.store }

// Config returns the configuration the application was built from.
func (app *Application) Config() Config { return app.cfg }

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// ErrProfilesUnsupported is returned by the profile operations when the
// credential store is not sqlite.
var ErrProfilesUnsupported = errors.New("profiles can only be listed in the sqlite credential store")

// Profiles lists the profiles holding stored credentials.
func (app *Application) Profiles(ctx context.Context) ([]string, error) {
	if app.db == nil {
		return nil, ErrProfilesUnsupported
	}
	return app.db.Profiles(ctx)
}

// DeleteProfile drops every stored value of profile. The server session, if
// any, is left alone.
func (app *Application) DeleteProfile(ctx context.Context, profile string) error {
	if app.db == nil {
		return ErrProfilesUnsupported
	}
	return app.db.DeleteProfile(ctx, profile)
}

// Close releases the backend connections. It is safe to call more than once.
func (app *Application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}
