// Package state provides the thread-safe dashboard state shared between the
// sync controller and the terminal UI.
//
// The Store owns everything the UI renders: connectivity, the server run
// state, stats, routes, config, the recent request log, the add-route draft
// and the current error message.
//
// # Concurrency Model
//
// The Store uses a readers-writer lock:
//
//   - Set*/PushLog/ClearLogs: acquire the write lock
//   - Snapshot(): acquires the read lock
//
// The lock is held only while copying. Network I/O happens in the controller
// and rendering happens in the UI, neither of them under the lock.
//
// # Observers
//
// Subscribe registers a callback that runs after each mutation, once the
// write lock has been released. Callbacks may call Snapshot but must not
// block. The UI uses a one-slot channel to schedule a redraw:
//
//	changes := make(chan struct{}, 1)
//	unsubscribe := store.Subscribe(func() {
//		select {
//		case changes <- struct{}{}:
//		default:
//		}
//	})
//	defer unsubscribe()
//
// # Request Log
//
// Log entries live in a LogBuffer capped at LogCapacity (50), newest first.
// PushLog prepends a streamed entry, evicts the oldest one past capacity and
// increments Stats.TotalRequests locally. The server's count wins again on
// the next stats fetch.
//
// # Copying
//
// Snapshot returns deep copies of routes, logs and the optional CPU reading,
// so callers may hold on to a snapshot while the store keeps changing.
package state
