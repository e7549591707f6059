package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/config"
	"github.com/dmitrijs2005/bazaar/internal/client/services"
	"github.com/dmitrijs2005/bazaar/internal/client/session"
	"github.com/dmitrijs2005/bazaar/internal/client/storage"
	"github.com/dmitrijs2005/bazaar/internal/cryptox"
	"github.com/dmitrijs2005/bazaar/internal/filex"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// sealInfo separates the token-sealing key from any other key derived from
// the device secret.
const sealInfo = "bazaar session token v1"

// Services is everything the commands call.
type Services struct {
	Auth    services.AuthService
	Profile services.ProfileService
	Address services.AddressService
	Advert  services.AdvertService
	Catalog services.CatalogService
	Upload  services.UploadService
}

type App struct {
	Services

	sessions func(ctx context.Context) <-chan bool
	in       *bufio.Reader
	out      io.Writer
	log      logging.Logger
	closers  []func() error
}

type Option func(*App)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
	}
}

// NewApp opens the local cache, restores any saved session and wires the
// services against the configured API.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...Option) (*App, error) {
	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dir

	db, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	app, err := wire(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.closers = append(app.closers, db.Close)
	for _, o := range opts {
		o(app)
	}

	if _, err := app.Auth.Restore(ctx); err != nil {
		log.Warn(ctx, "starting signed out", "error", err)
	}
	if cfg.SeedSampleData {
		if _, err := app.Catalog.SeedDefaults(ctx); err != nil {
			log.Warn(ctx, "could not seed sample data", "error", err)
		}
	}
	return app, nil
}

func wire(ctx context.Context, cfg *config.Config, db *storage.DB, log logging.Logger) (*App, error) {
	key, err := cryptox.LoadOrCreateDeviceKey(cfg.DeviceKeyPath())
	if err != nil {
		return nil, err
	}
	sealer, err := cryptox.NewSealer(key, sealInfo)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(session.Options{
		Validity:  cfg.SessionValidity,
		Persister: session.NewMetadataPersister(db.Metadata, sealer),
		Logger:    log.With("component", "session"),
	})

	api, err := client.NewRESTClient(client.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.RequestTimeout,
		RetryAttempts:  int(cfg.RetryAttempts),
		RetryBaseDelay: cfg.RetryBaseDelay,
		BypassHeader:   cfg.ProxyBypassHeader,
		BypassValue:    cfg.ProxyBypassValue,
		Tokens:         store,
		Logger:         log.With("component", "client"),
	})
	if err != nil {
		return nil, err
	}

	cache := services.NewCache(db, log)
	svcs := Services{
		Auth:    services.NewAuthService(api, store, cache, log),
		Profile: services.NewProfileService(api, store, cache, log, cfg.LinkTimeout),
		Address: services.NewAddressService(api, store, cache, log, cfg.LinkTimeout),
		Advert:  services.NewAdvertService(api, store, cache, log, cfg.LinkTimeout),
		Catalog: services.NewCatalogService(api, cache, log),
		Upload:  services.NewUploadService(api, store, log),
	}
	log.Debug(ctx, "client wired", "api", cfg.APIBaseURL, "data_dir", cfg.DataDir)
	return newApp(svcs, store.Subscribe, log), nil
}

func newApp(svcs Services, sessions func(context.Context) <-chan bool, log logging.Logger) *App {
	return &App{
		Services: svcs,
		sessions: sessions,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		log:      log,
	}
}

// Execute runs one command line and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(a.out, "error:", err)
		}
		return 1
	}
	return 0
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
