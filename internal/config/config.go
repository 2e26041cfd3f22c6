package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds beacon's runtime settings.
type Config struct {
	ServerURL      string
	Refresh        time.Duration
	LogLimit       int
	RequestTimeout time.Duration // zero means no per-request timeout
	LogFile        string        // empty discards diagnostic logs
}

const (
	defaultConfigPath = "~/.config/beacon/config.toml"
	defaultServerURL  = "http://localhost:8080"
	defaultRefresh    = 5 * time.Second
	defaultLogLimit   = 50
	maxLogLimit       = 50
)

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		ServerURL: defaultServerURL,
		Refresh:   defaultRefresh,
		LogLimit:  defaultLogLimit,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the beacon config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL             string `toml:"server_url"`
		RefreshSeconds        int    `toml:"refresh_seconds"`
		LogLimit              int    `toml:"log_limit"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		LogFile               string `toml:"log_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if url := strings.TrimSpace(raw.ServerURL); url != "" {
		cfg.ServerURL = url
	}
	if raw.RefreshSeconds < 0 || raw.LogLimit < 0 || raw.RequestTimeoutSeconds < 0 {
		return Config{}, fmt.Errorf("parse config: refresh_seconds, log_limit and request_timeout_seconds must not be negative")
	}
	if raw.RefreshSeconds > 0 {
		cfg.Refresh = time.Duration(raw.RefreshSeconds) * time.Second
	}
	if raw.LogLimit > 0 {
		cfg.LogLimit = min(raw.LogLimit, maxLogLimit)
	}
	cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
