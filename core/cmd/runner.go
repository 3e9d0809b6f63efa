package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/m3rciful/apptbot/core/app"
	"github.com/m3rciful/apptbot/core/appointment"
	"github.com/m3rciful/apptbot/core/bootstrap"
	coreconfig "github.com/m3rciful/apptbot/core/config"
	"github.com/m3rciful/apptbot/core/logger"
)

// Options describe how to load configuration and bootstrap the service.
type Options struct {
	// ConfigPath wins over the environment variable and the default path.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig     func(path string) (*coreconfig.Config, error)
	Bootstrap      func(opts bootstrap.Options) (*bootstrap.Result, error)
	NewApp         func(opts app.Options) (*app.App, error)
	ShutdownLogger func() error
}

// ResolveConfigPath picks the config file: explicit path, then the env variable, then
// the default path when it exists. Empty means environment-only configuration.
func ResolveConfigPath(opts Options) string {
	if opts.ConfigPath != "" {
		return opts.ConfigPath
	}
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p
	}
	if opts.DefaultConfigPath != "" {
		if _, err := os.Stat(opts.DefaultConfigPath); err == nil {
			return opts.DefaultConfigPath
		}
	}
	return ""
}

func (o Options) load() (*coreconfig.Config, error) {
	load := o.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}
	path := ResolveConfigPath(o)
	if path != "" {
		log.Printf("loading config: %s", path)
	}
	cfg, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: failed to load config: %w", err)
	}
	return cfg, nil
}

func (o Options) start(skipMigrations bool) (*coreconfig.Config, *bootstrap.Result, func(), error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	boot := o.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(bootstrap.Options{Config: cfg, SkipMigrations: skipMigrations})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	shutdownLogger := o.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	cleanup := func() {
		if err := res.Close(); err != nil {
			logger.Warn(context.Background(), logger.CompDB, "db.close",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}
	return cfg, res, cleanup, nil
}

func (o Options) newApp(cfg *coreconfig.Config, res *bootstrap.Result) (*app.App, error) {
	build := o.NewApp
	if build == nil {
		build = app.New
	}
	a, err := build(app.Options{Config: cfg, DB: res.DB})
	if err != nil {
		return nil, fmt.Errorf("cmd: app build failed: %w", err)
	}
	return a, nil
}

// Serve runs the webhook until SIGINT/SIGTERM. With withSetup the platform
// registration runs first; its failure is logged and does not stop the server.
func Serve(ctx context.Context, opts Options, withSetup bool) error {
	startedAt := time.Now()
	cfg, res, cleanup, err := opts.start(false)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := opts.newApp(cfg, res)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if withSetup {
		// Errors are already logged by Setup.
		_, _ = a.Setup(ctx)
	}

	logger.Info(ctx, logger.CompApp, "app.ready",
		slog.String("status", "ok"),
		slog.String("listen", cfg.Server.Addr()),
		slog.String("store", cfg.Store.Driver),
		slog.Bool("notify", cfg.Telegram.NotifyEnabled()),
		slog.Duration("startup_duration", time.Since(startedAt)),
	)
	err = a.Serve(ctx)
	logger.Info(context.Background(), logger.CompApp, "app.shutdown", slog.String("status", logger.Status(err)))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Setup performs the one-time platform registration and exits.
func Setup(ctx context.Context, opts Options) error {
	cfg, res, cleanup, err := opts.start(true)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := opts.newApp(cfg, res)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Setup(ctx)
	return err
}

// Migrate applies the embedded migrations. It fails unless the postgres store is configured.
func Migrate(_ context.Context, opts Options) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != coreconfig.StoreDriverPostgres {
		return fmt.Errorf("cmd: migrate needs store.driver=%s, got %q", coreconfig.StoreDriverPostgres, cfg.Store.Driver)
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: migrate failed: %w", err)
	}
	defer func() {
		_ = res.Close()
		shutdown := opts.ShutdownLogger
		if shutdown == nil {
			shutdown = logger.Shutdown
		}
		_ = shutdown()
	}()
	logger.Info(context.Background(), logger.CompMigrate, "migrate.done", slog.String("status", "ok"))
	return nil
}

// List prints a user's stored appointments to w, oldest first.
func List(ctx context.Context, opts Options, userID string, w io.Writer) error {
	if userID == "" {
		return errors.New("cmd: list needs a user id")
	}
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != coreconfig.StoreDriverPostgres {
		return fmt.Errorf("cmd: list needs store.driver=%s, got %q", coreconfig.StoreDriverPostgres, cfg.Store.Driver)
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(bootstrap.Options{Config: cfg, SkipMigrations: true})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		_ = res.Close()
		shutdown := opts.ShutdownLogger
		if shutdown == nil {
			shutdown = logger.Shutdown
		}
		_ = shutdown()
	}()

	items, err := appointment.NewPostgresStore(res.DB).ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	return writeAppointments(w, items)
}

func writeAppointments(w io.Writer, items []appointment.Appointment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tPHONE")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.StartsAt.UTC().Format(time.RFC3339), a.EndsAt.UTC().Format(time.RFC3339), a.Phone)
	}
	return tw.Flush()
}
