package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beacon/internal/api"
	"github.com/five82/beacon/internal/config"
	"github.com/five82/beacon/internal/prefs"
	"github.com/five82/beacon/internal/state"
	"github.com/five82/beacon/internal/syncer"
	"github.com/five82/beacon/internal/ui"
)

// Options configure the beacon application.
type Options struct {
	ConfigPath     string // empty uses ~/.config/beacon/config.toml
	PrefsPath      string // empty uses ~/.config/beacon/prefs.toml
	ServerURL      string // connect to this server on start
	RefreshSeconds int    // stats refresh interval; zero uses the config value
}

// settings are the effective values after merging config, prefs and flags.
type settings struct {
	serverURL   string
	autoConnect bool
	refresh     time.Duration
	theme       string
}

func resolve(cfg config.Config, p prefs.Prefs, opts Options) settings {
	s := settings{
		serverURL: cfg.ServerURL,
		refresh:   cfg.Refresh,
		theme:     p.Theme,
	}
	if p.LastServerURL != "" {
		s.serverURL = p.LastServerURL
	}
	if url := strings.TrimSpace(opts.ServerURL); url != "" {
		s.serverURL = url
		s.autoConnect = true
	}
	if opts.RefreshSeconds > 0 {
		s.refresh = time.Duration(opts.RefreshSeconds) * time.Second
	}
	return s
}

// Run boots the beacon TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	logger, closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		logger.Warn("load prefs failed, using defaults", "path", prefsPath, "error", err)
	}

	s := resolve(cfg, userPrefs, opts)
	logger.Info("starting", "config", configPath, "server", s.serverURL, "refresh", s.refresh, "auto_connect", s.autoConnect)

	store := state.NewStore()
	ctrl, err := syncer.New(syncer.Options{
		Store:           store,
		NewClient:       clientFactory(cfg.RequestTimeout),
		RefreshInterval: s.refresh,
		LogLimit:        cfg.LogLimit,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}
	defer func() { _ = ctrl.Close() }()

	err = ui.Run(ui.Options{
		Context:     ctx,
		Controller:  ctrl,
		Store:       store,
		ServerURL:   s.serverURL,
		AutoConnect: s.autoConnect,
		ThemeName:   s.theme,
		PrefsPath:   prefsPath,
		Logger:      logger,
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func clientFactory(timeout time.Duration) syncer.ClientFactory {
	return func(serverURL string) (api.Fetcher, error) {
		var opts []api.Option
		if timeout > 0 {
			opts = append(opts, api.WithTimeout(timeout))
		}
		client, err := api.NewClient(serverURL, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// setupLogging routes log and slog output to path, or discards it when path
// is empty. The terminal belongs to the TUI either way.
func setupLogging(path string) (*slog.Logger, func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		slog.SetDefault(logger)
		return logger, func() {}, nil
	}

	f, err := tea.LogToFile(path, "beacon")
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}
