// Package config loads beacon's TOML configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/beacon/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// A file that exists but cannot be read or parsed is an error; beacon refuses
// to start rather than silently ignoring a typo.
//
// # Default Values
//
//   - Server URL: http://localhost:8080
//   - Stats refresh: 5 seconds (only while the server is running)
//   - Initial log fetch: 50 entries (also the maximum)
//   - Request timeout: none; a hung server shows as "connecting"
//   - Log file: none; diagnostics are discarded so the TUI stays clean
//
// # TOML Format
//
//	server_url = "http://localhost:8080"
//	refresh_seconds = 5
//	log_limit = 50
//	request_timeout_seconds = 10
//	log_file = "~/.local/state/beacon/beacon.log"
//
// Paths starting with ~ are expanded to the user's home directory.
package config
