package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/hazyhaar/docveille/fetcher"
	"github.com/hazyhaar/docveille/monitor"
	"github.com/hazyhaar/docveille/notify"
	"github.com/hazyhaar/docveille/snapshot"
)

// commandContext carries flags and lazily built wiring shared by the
// subcommands.
type commandContext struct {
	configPath string
	logLevel   string

	logger *slog.Logger
}

func (c *commandContext) buildLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	level := c.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	c.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(c.logger)
	return c.logger
}

// wiring is the fully assembled monitor stack. Close releases the browser
// and the database.
type wiring struct {
	cfg     *monitor.Config
	store   *snapshot.Store
	browser *fetcher.Browser
	service *monitor.Service
	logger  *slog.Logger
}

func (w *wiring) Close() {
	if w.browser != nil {
		w.browser.Close()
	}
	if w.store != nil {
		w.store.Close()
	}
}

func (c *commandContext) wire() (*wiring, error) {
	logger := c.buildLogger()

	cfg, err := monitor.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	browser := fetcher.NewBrowser(fetcher.BrowserConfig{
		RemoteURL:       cfg.Browser.RemoteURL,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Logger:          logger,
	})
	f := fetcher.New(browser, fetcher.Config{
		PortalHost: cfg.PortalHost,
		Logger:     logger,
	})

	var notifier monitor.Notifier
	if cfg.Email.Enabled() {
		notifier = notify.NewMailer(cfg.Email, logger)
	} else {
		logger.Info("email not configured, reports will only be logged")
	}

	return &wiring{
		cfg:     cfg,
		store:   store,
		browser: browser,
		service: monitor.NewService(cfg, store, f, notifier, logger),
		logger:  logger,
	}, nil
}
