package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/beacon/internal/config"
	"github.com/five82/beacon/internal/prefs"
)

func TestResolveSettings(t *testing.T) {
	cfg := config.Default()
	cfg.ServerURL = "http://from-config:8080"
	cfg.Refresh = 7 * time.Second

	tests := []struct {
		name        string
		prefs       prefs.Prefs
		opts        Options
		wantURL     string
		wantAuto    bool
		wantRefresh time.Duration
	}{
		{"config only", prefs.Default(), Options{}, "http://from-config:8080", false, 7 * time.Second},
		{"prefs url wins over config", prefs.Prefs{Theme: "Slate", LastServerURL: "http://last:1"}, Options{}, "http://last:1", false, 7 * time.Second},
		{"flag url connects", prefs.Prefs{LastServerURL: "http://last:1"}, Options{ServerURL: " http://flag:2 "}, "http://flag:2", true, 7 * time.Second},
		{"refresh flag", prefs.Default(), Options{RefreshSeconds: 2}, "http://from-config:8080", false, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(cfg, tt.prefs, tt.opts)
			if got.serverURL != tt.wantURL {
				t.Errorf("serverURL = %q, want %q", got.serverURL, tt.wantURL)
			}
			if got.autoConnect != tt.wantAuto {
				t.Errorf("autoConnect = %v, want %v", got.autoConnect, tt.wantAuto)
			}
			if got.refresh != tt.wantRefresh {
				t.Errorf("refresh = %v, want %v", got.refresh, tt.wantRefresh)
			}
			if got.theme != tt.prefs.Theme {
				t.Errorf("theme = %q, want %q", got.theme, tt.prefs.Theme)
			}
		})
	}
}

func TestClientFactory(t *testing.T) {
	newClient := clientFactory(3 * time.Second)

	client, err := newClient("http://localhost:8080")
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	if client == nil {
		t.Fatal("newClient returned nil client")
	}

	if _, err := newClient("ftp://localhost"); err == nil {
		t.Fatal("expected error for an unsupported scheme")
	}
}

func TestSetupLoggingWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "beacon.log")
	logger, closeLog, err := setupLogging(path)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	logger.Info("hello", "component", "test")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(string(data), "component=test") {
		t.Fatalf("log file = %q, want hello record", data)
	}
}

func TestSetupLoggingDiscards(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger, closeLog, err := setupLogging("")
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer closeLog()
	if logger == nil {
		t.Fatal("logger is nil")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("refresh_seconds = -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := Run(context.Background(), Options{ConfigPath: path})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("Run error = %v, want load config failure", err)
	}
}
