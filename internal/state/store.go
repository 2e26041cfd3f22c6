package state

import (
	"sync"
	"time"

	"github.com/five82/beacon/internal/api"
)

// Connectivity is the client-perceived reachability of the server.
type Connectivity string

const (
	Disconnected Connectivity = "disconnected"
	Connecting   Connectivity = "connecting"
	Connected    Connectivity = "connected"
)

// RouteDraft is the add-route form contents.
type RouteDraft struct {
	Path    string
	Handler string
	Method  string
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Connectivity Connectivity
	RunState     api.RunState
	Stats        api.ServerStats
	HasStats     bool
	Routes       []api.Route
	Config       api.ServerConfig
	HasConfig    bool
	Logs         []api.RequestLogEntry
	Draft        RouteDraft
	LastError    string
	LastUpdated  time.Time
}

// IsConnected reports whether the dashboard is connected.
func (s Snapshot) IsConnected() bool {
	return s.Connectivity == Connected
}

// Store holds the dashboard state. Every mutation notifies subscribers after
// the lock is released.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	logs     LogBuffer

	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewStore returns a store in the disconnected/unknown state.
func NewStore() *Store {
	return &Store{
		snapshot: Snapshot{Connectivity: Disconnected, RunState: api.RunStateUnknown},
		logs:     LogBuffer{capacity: LogCapacity},
	}
}

// Subscribe registers fn to run after every mutation and returns a function
// that removes it.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// mutate applies fn under the write lock, stamps LastUpdated and notifies.
func (s *Store) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.snapshot.LastUpdated = time.Now()
	s.mu.Unlock()
	s.notify()
}

// SetConnectivity records the connectivity state and reports whether it
// changed.
func (s *Store) SetConnectivity(c Connectivity) (changed bool) {
	s.mutate(func(snap *Snapshot) {
		changed = snap.Connectivity != c
		snap.Connectivity = c
	})
	return changed
}

// SetRunState records the server run state.
func (s *Store) SetRunState(rs api.RunState) {
	s.mutate(func(snap *Snapshot) {
		snap.RunState = rs
	})
}

// SetStats replaces the stats snapshot.
func (s *Store) SetStats(stats api.ServerStats) {
	s.mutate(func(snap *Snapshot) {
		snap.Stats = stats
		snap.HasStats = true
	})
}

// SetRoutes replaces the route list.
func (s *Store) SetRoutes(routes []api.Route) {
	s.mutate(func(snap *Snapshot) {
		snap.Routes = cloneRoutes(routes)
	})
}

// SetConfig replaces the server config snapshot.
func (s *Store) SetConfig(cfg api.ServerConfig) {
	s.mutate(func(snap *Snapshot) {
		snap.Config = cfg
		snap.HasConfig = true
	})
}

// SetLogs replaces the log buffer with entries, newest first.
func (s *Store) SetLogs(entries []api.RequestLogEntry) {
	s.mutate(func(*Snapshot) {
		s.logs.Replace(entries)
	})
}

// PushLog prepends a streamed entry and counts it towards TotalRequests. The
// local count is not reconciled with the server until the next stats fetch.
func (s *Store) PushLog(entry api.RequestLogEntry) {
	s.mutate(func(snap *Snapshot) {
		s.logs.Prepend(entry)
		snap.Stats.TotalRequests++
	})
}

// ClearLogs empties the log buffer.
func (s *Store) ClearLogs() {
	s.mutate(func(*Snapshot) {
		s.logs.Clear()
	})
}

// SetDraft replaces the add-route draft.
func (s *Store) SetDraft(d RouteDraft) {
	s.mutate(func(snap *Snapshot) {
		snap.Draft = d
	})
}

// ClearDraft resets the add-route draft.
func (s *Store) ClearDraft() {
	s.SetDraft(RouteDraft{})
}

// SetError records a user-visible error message.
func (s *Store) SetError(msg string) {
	s.mutate(func(snap *Snapshot) {
		snap.LastError = msg
	})
}

// DismissError clears the error banner.
func (s *Store) DismissError() {
	s.SetError("")
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Routes = cloneRoutes(s.snapshot.Routes)
	snap.Logs = s.logs.Entries()
	if s.snapshot.Stats.CPUUsage != nil {
		cpu := *s.snapshot.Stats.CPUUsage
		snap.Stats.CPUUsage = &cpu
	}
	return snap
}

func cloneRoutes(routes []api.Route) []api.Route {
	if len(routes) == 0 {
		return nil
	}
	dup := make([]api.Route, len(routes))
	copy(dup, routes)
	return dup
}
