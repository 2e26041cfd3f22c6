// Package ui provides beacon's Bubble Tea terminal dashboard.
//
// # Screens
//
// While disconnected or connecting the UI shows a server URL form and a
// spinner. Once connected it shows:
//
//   - Header: connectivity and run state badges, server URL, last update
//   - Command bar: the keys valid on the current screen
//   - Error banner: the last error until it is dismissed with x
//   - Stat cards: uptime, total requests, active connections, memory, CPU
//   - Tabs: request log, routes (with an add-route form), static files, configuration
//
// Log entries are colored by status class: 2xx success, 3xx caution, 4xx
// warning, anything else error. Empty collections show a placeholder.
//
// # Event Flow
//
//  1. New subscribes to state.Store; each mutation wakes a waiting command
//  2. The resulting storeChangedMsg copies a fresh snapshot into the model
//  3. Keys trigger Controller actions inside tea.Cmd goroutines
//  4. Action results flow back through the store, not through return values
//
// Store notifications are coalesced through a one-slot channel, so a burst of
// pushed log entries costs a single redraw and Update never blocks on it.
//
// # Key Bindings
//
//   - enter: Connect (URL form) or save the add-route form
//   - s: Start or stop the server (connected only)
//   - a: Add route
//   - C: Clear logs
//   - r: Reconnect
//   - tab/shift+tab: Switch tabs
//   - x: Dismiss error
//   - T: Cycle theme
//   - ?: Help
//   - q or ctrl+c: Quit
package ui
