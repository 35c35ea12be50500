// Command geoaictl drives the GeoAI platform from the terminal: projects,
// comparisons, ML models, administration and history.
//
// Usage:
//
//	GEOAI_BASE_URL=https://geoai.example.com geoaictl login --email me@example.com
//	geoaictl projects create --name "Site A" --type aerial --link X --wait
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/api"
	"github.com/p-blackswan/geoai-console/internal/config"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/retry"
	"github.com/p-blackswan/geoai-console/internal/state"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// command runs one subcommand with the arguments following its name.
type command struct {
	usage string
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":          {"login --email E [--password P]", runLogin},
	"logout":         {"logout", runLogout},
	"whoami":         {"whoami", runWhoami},
	"passwd":         {"passwd --old P --new P", runPasswd},
	"restore-access": {"restore-access --email E", runRestoreAccess},
	"reset-password": {"reset-password --key K --password P", runResetPassword},
	"projects":       {"projects list|show|create|delete|files|detect", runProjects},
	"compare":        {"compare list|show|start|delete|candidates", runCompare},
	"ml":             {"ml list|show|create|train|finish|delete|types|folders|dashboard", runML},
	"admin":          {"admin users|user-create|user-update|user-status|invite|groups|group-create", runAdmin},
	"history":        {"history [action|object|error] [--from D] [--to D]", runHistory},
	"prefs":          {"prefs get [KEY] | prefs set KEY VALUE", runPrefs},
	"jobs":           {"jobs list [--active] | jobs watch", runJobs},
	"console":        {"console", runConsole},
}

// cli is what every subcommand works with.
type cli struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	db      *store.Store
	client  *api.Client
	app     *state.App
	out     io.Writer
}

func main() {
	flags := pflag.NewFlagSet("geoaictl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	configFile := flags.String("config", "", "YAML config file (overrides GEOAI_CONFIG_FILE)")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flags.Usage = usage(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "geoaictl: loading %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithPrefix(config.Prefix, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "geoaictl: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	log.Logger = logger

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "geoaictl: unknown command %q\n", args[0])
		flags.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := setup(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise")
	}
	err = cmd.run(ctx, c, args[1:])
	c.close()

	if err != nil {
		if errors.Is(err, perrors.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "geoaictl: not signed in or session expired; run geoaictl login")
		} else if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "geoaictl: %s\n", errorText(err))
			logger.Debug().Err(err).Str("command", args[0]).Msg("Command failed")
		}
		os.Exit(1)
	}
}

// errorText prefers the server's wording when the error came from it.
func errorText(err error) string {
	if perrors.CodeOf(err) != "" || perrors.MessageOf(err) != "" {
		return alert.Text(err)
	}
	return err.Error()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func usage(flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "Usage: geoaictl [--config FILE] [--env-file FILE] COMMAND [ARGS]")
		fmt.Fprintln(os.Stderr, "\nCommands:")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
		}
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
}

func setup(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*cli, error) {
	path := cfg.StatePath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	db, err := store.New(path, logger)
	if err != nil {
		return nil, err
	}
	if jobs, tokens, err := db.RunRetention(ctx, store.DefaultRetention); err != nil {
		logger.Warn().Err(err).Msg("State retention failed")
	} else if jobs+tokens > 0 {
		logger.Debug().Int("jobs", jobs).Int("tokens", tokens).Msg("Pruned state")
	}

	m := metrics.New()
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RetryAttempts
	client := api.NewClient(api.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.HTTPTimeout,
		Retry:     rc,
		RateLimit: rate.Limit(cfg.RateLimitRPS),
		Burst:     cfg.RateLimitBurst,
		CacheTTL:  cfg.LookupCacheTTL,
		Metrics:   m,
	}, db.Tokens(), logger)

	out := os.Stdout
	app, err := state.New(ctx, state.Options{
		Client:    client,
		Store:     db,
		Intervals: state.Intervals{Create: cfg.CreatePollInterval, Task: cfg.TaskPollInterval},
		AlertTTL:  cfg.AlertTTL,
		PageLimit: cfg.PageLimit,
		Navigate:  func(path string) { fmt.Fprintf(out, "-> %s\n", path) },
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	// Errors come back as return values; everything else is shown as it
	// is raised.
	app.Alerts.Subscribe(func(a alert.Alert, ok bool) {
		if ok && a.Severity != models.SeverityError {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", a.Severity, a.Message)
		}
	})

	return &cli{cfg: cfg, logger: logger, metrics: m, db: db, client: client, app: app, out: out}, nil
}

func (c *cli) close() {
	c.app.Close()
	if err := c.db.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close state store")
	}
}

// subcommand splits "projects list ..." style arguments.
func subcommand(args []string, names ...string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("expected one of %s: %w", strings.Join(names, ", "), perrors.ErrInvalidInput)
	}
	for _, n := range names {
		if args[0] == n {
			return n, args[1:], nil
		}
	}
	return "", nil, fmt.Errorf("unknown subcommand %q, expected one of %s: %w", args[0], strings.Join(names, ", "), perrors.ErrInvalidInput)
}
