// Package cli provides a command-line interface for the nosql caches and
// school document helpers.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nosql"
	"github.com/felixgeelhaar/nosql/application/cache"
	"github.com/felixgeelhaar/nosql/application/web"
	domainconfig "github.com/felixgeelhaar/nosql/domain/config"
	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/school"
	"github.com/felixgeelhaar/nosql/infrastructure/config"
	"github.com/felixgeelhaar/nosql/infrastructure/fetch"
	"github.com/felixgeelhaar/nosql/infrastructure/logging"
	infmw "github.com/felixgeelhaar/nosql/infrastructure/middleware"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

// Version information set at build time.
var (
	Version   = nosql.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// SchoolStore reads and writes school documents.
type SchoolStore interface {
	InsertSchool(ctx context.Context, fields map[string]any) (any, error)
	UpdateTopics(ctx context.Context, name string, topics []string) (int64, error)
	List(ctx context.Context) ([]school.School, error)
	SchoolsByTopic(ctx context.Context, topic string) ([]school.School, error)
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	backend    string

	// Injected dependencies. When nil they are built from configuration.
	store   kv.Store
	fetcher web.Fetcher
	schools SchoolStore

	builder *config.Builder
	metrics *telemetry.MetricsProvider
	meters  *telemetry.MeterProvider
	tracing *telemetry.TracerProvider
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "nosql",
		Short: "Counting cache, page cache and school documents on NoSQL stores",
		Long: `nosql stores values under random keys while counting and recording every
store call, caches web pages for a short time while counting every access,
and inserts and updates school documents in MongoDB.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd.Context())
		},
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file")
	app.root.PersistentFlags().StringVar(&app.backend, "backend", "", "Key-value backend: redis, memory or badger (overrides config)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newStoreCmd(),
		app.newGetCmd(),
		app.newCallsCmd(),
		app.newReplayCmd(),
		app.newFlushCmd(),
		app.newPageCmd(),
		app.newPageCountCmd(),
		app.newSchoolCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithStore sets the key-value store instead of opening the configured one.
// The App does not close an injected store.
func (a *App) WithStore(store kv.Store) *App {
	a.store = store
	return a
}

// WithFetcher sets the page fetcher instead of the HTTP fetcher.
func (a *App) WithFetcher(f web.Fetcher) *App {
	a.fetcher = f
	return a
}

// WithSchoolStore sets the school store instead of connecting to MongoDB.
func (a *App) WithSchoolStore(s SchoolStore) *App {
	a.schools = s
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := a.root.ExecuteContext(ctx)
	if a.meters != nil {
		if shutdownErr := a.meters.Shutdown(context.Background()); shutdownErr != nil {
			logging.Warn().Add(logging.ErrorField(shutdownErr)).Msg("pushing metrics")
		}
	}
	if a.tracing != nil {
		if shutdownErr := a.tracing.Shutdown(context.Background()); shutdownErr != nil {
			logging.Warn().Add(logging.ErrorField(shutdownErr)).Msg("flushing spans")
		}
	}
	return err
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// setup loads configuration and initializes logging, metrics and tracing.
func (a *App) setup(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	a.builder = config.NewBuilder(cfg)

	logCfg := a.builder.Logging()
	logCfg.Output = a.stderr
	logging.Init(logCfg)

	exportCfg := a.builder.Metrics()
	exportCfg.ServiceVersion = Version
	a.meters, err = telemetry.NewMeterProvider(ctx, exportCfg)
	if err != nil {
		return err
	}
	metricsCfg := telemetry.DefaultMetricsConfig()
	metricsCfg.MeterProvider = a.meters.Provider()
	a.metrics = telemetry.NewMetricsProvider(metricsCfg)

	traceCfg := a.builder.Tracing()
	traceCfg.ServiceVersion = Version
	traceCfg.Writer = a.stderr
	a.tracing, err = telemetry.NewTracerProvider(ctx, traceCfg)
	return err
}

func (a *App) loadConfig() (*domainconfig.Config, error) {
	cfg := domainconfig.Default()
	if a.configPath != "" {
		loaded, err := config.NewLoader().LoadFile(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if a.backend != "" {
		if !kv.Backend(a.backend).Valid() {
			return nil, fmt.Errorf("invalid backend %q: must be redis, memory or badger", a.backend)
		}
		cfg.Backend = a.backend
	}
	return cfg, nil
}

// openStore returns the key-value store and a function releasing it.
func (a *App) openStore() (kv.Store, func(), error) {
	if a.store != nil {
		return a.store, func() {}, nil
	}

	store, err := a.builder.OpenStore()
	if err != nil {
		return nil, nil, err
	}
	logging.Debug().
		Add(logging.Backend(a.builder.Config().Backend)).
		Msg("store opened")

	return store, func() {
		if err := store.Close(); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("closing store")
		}
	}, nil
}

// openCache opens the counting cache without flushing existing data.
func (a *App) openCache(ctx context.Context) (*cache.Cache, func(), error) {
	store, release, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.New(ctx, store,
		cache.WithFlushOnInit(false),
		cache.WithMiddleware(
			infmw.Tracing(a.tracing.Tracer()),
			infmw.Logging(infmw.LoggingConfig{LogInput: true, LogOutput: true}),
			infmw.Metrics(infmw.MetricsConfig{Provider: a.metrics}),
		),
	)
	if err != nil {
		release()
		return nil, nil, err
	}
	return c, release, nil
}

// openPageCache opens the page cache with the configured fetcher.
func (a *App) openPageCache() (*web.PageCache, func(), error) {
	store, release, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}

	fetcher := a.fetcher
	if fetcher == nil {
		httpFetcher := fetch.NewHTTPFetcher(a.builder.Fetch(), fetch.WithMetrics(a.metrics))
		fetcher = httpFetcher
		releaseStore := release
		release = func() {
			_ = httpFetcher.Close()
			releaseStore()
		}
	}

	page := a.builder.Config().Page
	return web.NewPageCache(store, fetcher,
		web.WithTTL(page.TTL.Duration()),
		web.WithCountPrefix(page.CountPrefix),
		web.WithMetrics(a.metrics),
		web.WithMiddleware(infmw.Tracing(a.tracing.Tracer())),
	), release, nil
}

// openSchools returns the school store and a function releasing it.
func (a *App) openSchools(ctx context.Context) (SchoolStore, func(), error) {
	if a.schools != nil {
		return a.schools, func() {}, nil
	}

	store, client, err := a.builder.OpenSchoolStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := client.Close(context.Background()); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("closing mongodb client")
		}
	}, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "nosql version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
