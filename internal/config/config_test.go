package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load = %#v, want defaults %#v", cfg, Default())
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Fatalf("ServerURL = %q, want http://localhost:8080", cfg.ServerURL)
	}
	if cfg.Refresh != 5*time.Second {
		t.Fatalf("Refresh = %v, want 5s", cfg.Refresh)
	}
	if cfg.RequestTimeout != 0 {
		t.Fatalf("RequestTimeout = %v, want 0 (no timeout)", cfg.RequestTimeout)
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLimit != defaultLogLimit {
		t.Fatalf("LogLimit = %d, want %d", cfg.LogLimit, defaultLogLimit)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
server_url = "  https://dash.example.com:8443  "
refresh_seconds = 2
log_limit = 20
request_timeout_seconds = 15
log_file = "  ~/beacon.log  "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "https://dash.example.com:8443" {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, "https://dash.example.com:8443")
	}
	if cfg.Refresh != 2*time.Second {
		t.Fatalf("Refresh = %v, want 2s", cfg.Refresh)
	}
	if cfg.LogLimit != 20 {
		t.Fatalf("LogLimit = %d, want 20", cfg.LogLimit)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %v, want 15s", cfg.RequestTimeout)
	}
	if cfg.LogFile != filepath.Join(home, "beacon.log") {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, `
server_url = "   "
refresh_seconds = 0
log_file = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, defaultServerURL)
	}
	if cfg.Refresh != defaultRefresh {
		t.Fatalf("Refresh = %v, want %v", cfg.Refresh, defaultRefresh)
	}
	if cfg.LogFile != "" {
		t.Fatalf("LogFile = %q, want empty", cfg.LogFile)
	}
}

func TestLoad_LogLimitIsCapped(t *testing.T) {
	path := writeConfig(t, "log_limit = 500\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLimit != maxLogLimit {
		t.Fatalf("LogLimit = %d, want %d", cfg.LogLimit, maxLogLimit)
	}
}

func TestLoad_NegativeValuesFail(t *testing.T) {
	path := writeConfig(t, "refresh_seconds = -1\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("Load returned nil error, want negative value error")
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, `server_url = [`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
