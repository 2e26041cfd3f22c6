// Package app wires beacon together.
//
// # Overview
//
// Run is the composition root. It loads configuration and preferences, sets
// up diagnostic logging, builds the shared state.Store and the
// syncer.Controller, and hands both to the Bubble Tea UI:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()     ~/.config/beacon/config.toml
//	       ├─────> prefs.Load()      theme and last server URL
//	       ├─────> setupLogging()    log_file or discard
//	       ├─────> state.NewStore()  shared dashboard state
//	       ├─────> syncer.New()      REST, push stream, stats refresher
//	       └─────> ui.Run()          TUI (blocks)
//
// # Settings Precedence
//
// The server URL comes from the -url flag, then the last URL saved in the
// prefs file, then server_url from the config file. Passing -url also
// connects immediately; otherwise the connect form waits for enter.
//
// The stats refresh interval comes from -refresh, then refresh_seconds, then
// the five second default.
//
// # Error Handling
//
// Only startup failures are returned: an unreadable or invalid config file,
// or a log file that cannot be opened. A broken prefs file is logged and
// replaced by defaults. Once the UI is running every remote failure is shown
// in the error banner and nothing is fatal.
package app
