// Command nextbus shows TransLink arrival estimates, bus locations and
// service alerts for a stop, and can serve them as JSON over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"nextbus/internal/config"
	"nextbus/internal/metrics"
	"nextbus/internal/storage"
	"nextbus/internal/translink"
)

// env is what every command needs, filled in by the app's Before hook.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	json   bool
}

func main() {
	e := &env{}
	app := newApp(e)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "nextbus:", err)
		os.Exit(1)
	}
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:  "nextbus",
		Usage: "TransLink real-time arrivals from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file (overrides NEXTBUS_CONFIG)"},
			&cli.StringFlag{Name: "api-key", Usage: "TransLink API key (overrides NEXTBUS_API_KEY)"},
			&cli.StringFlag{Name: "base-url", Usage: "RTTI base URL"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database for saved stops"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "skip-net-check", Usage: "do not check for a network connection before requests"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
		},
		Before: func(c *cli.Context) error {
			return e.setup(c)
		},
		Commands: []*cli.Command{
			stopCommand(e),
			estimatesCommand(e),
			busesCommand(e),
			boardCommand(e),
			alertsCommand(e),
			saveCommand(e),
			unsaveCommand(e),
			savedCommand(e),
			serveCommand(e),
		},
	}
}

// setup reads the configuration, applies global flags on top and builds the
// logger.
func (e *env) setup(c *cli.Context) error {
	if c.IsSet("config") {
		os.Setenv("NEXTBUS_CONFIG", c.String("config"))
	}
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if c.IsSet("api-key") {
		cfg.APIKey = c.String("api-key")
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = strings.ToLower(c.String("log-level"))
	}
	if c.IsSet("skip-net-check") {
		cfg.SkipNetCheck = c.Bool("skip-net-check")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfg = cfg
	e.json = c.Bool("json")
	e.logger = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (e *env) client(m *metrics.Collector) (*translink.Client, error) {
	opts := []translink.Option{
		translink.WithTimeouts(e.cfg.ConnectTimeout, e.cfg.ReadTimeout),
		translink.WithMetrics(m),
	}
	if e.cfg.SkipNetCheck {
		opts = append(opts, translink.WithNetwork(translink.AlwaysConnected))
	}
	return translink.NewClient(e.cfg.BaseURL, e.cfg.APIKey, e.logger, opts...)
}

func (e *env) openDB() (*storage.DB, error) {
	return storage.Open(e.cfg.DBPath, e.logger)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
