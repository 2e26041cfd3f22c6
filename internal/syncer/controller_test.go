package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/five82/beacon/internal/api"
	"github.com/five82/beacon/internal/apitest"
	"github.com/five82/beacon/internal/state"
)

func newController(t *testing.T, store *state.Store, interval time.Duration) *Controller {
	t.Helper()
	c, err := New(Options{
		Store:           store,
		RefreshInterval: interval,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func connect(t *testing.T, c *Controller, srv *apitest.Server) {
	t.Helper()
	if err := c.Connect(context.Background(), srv.URL); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	srv.WaitForStreamClients(t, 1)
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("New without store returned nil error")
	}
}

func TestConnect_LoadsDashboardOnce(t *testing.T) {
	srv := apitest.New(t)
	srv.SetStats(api.ServerStats{Uptime: "1m", TotalRequests: 42, ActiveConnections: 2, MemoryUsage: "12.0 MB"})
	srv.SetRoutes([]api.Route{{Path: "/health", Handler: "HealthHandler", Method: "GET", Enabled: true}})
	srv.SetLogs([]api.RequestLogEntry{{ID: "b", Status: 404}, {ID: "a", Status: 200}})

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	snap := store.Snapshot()
	if snap.Connectivity != state.Connected {
		t.Fatalf("Connectivity = %q, want connected", snap.Connectivity)
	}
	if snap.RunState != api.RunStateRunning {
		t.Fatalf("RunState = %q, want running", snap.RunState)
	}
	if !snap.HasStats || snap.Stats.TotalRequests != 42 {
		t.Fatalf("stats = %#v, want total 42", snap.Stats)
	}
	if len(snap.Routes) != 1 || snap.Routes[0].Path != "/health" {
		t.Fatalf("routes = %#v, want /health", snap.Routes)
	}
	if !snap.HasConfig || snap.Config.Port != 8080 {
		t.Fatalf("config = %#v, want port 8080", snap.Config)
	}
	if len(snap.Logs) != 2 || snap.Logs[0].ID != "b" {
		t.Fatalf("logs = %#v, want b,a", snap.Logs)
	}
	if snap.LastError != "" {
		t.Fatalf("LastError = %q, want empty", snap.LastError)
	}

	for _, path := range []string{"/api/server/status", "/api/server/stats", "/api/routes", "/api/server/config", "/api/logs"} {
		if got := srv.Hits(http.MethodGet, path); got != 1 {
			t.Fatalf("GET %s hits = %d, want 1", path, got)
		}
	}
	if c.ServerURL() != srv.URL {
		t.Fatalf("ServerURL() = %q, want %q", c.ServerURL(), srv.URL)
	}
}

func TestConnect_StatusFailureDisconnects(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/api/server/status", http.StatusInternalServerError)

	store := state.NewStore()
	store.SetRunState(api.RunStateRunning)
	c := newController(t, store, time.Hour)

	err := c.Connect(context.Background(), srv.URL)
	if !api.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("Connect error = %v, want HTTP 500", err)
	}

	snap := store.Snapshot()
	if snap.Connectivity != state.Disconnected {
		t.Fatalf("Connectivity = %q, want disconnected", snap.Connectivity)
	}
	if snap.RunState != api.RunStateUnknown {
		t.Fatalf("RunState = %q, want unknown", snap.RunState)
	}
	if !strings.Contains(snap.LastError, "500") {
		t.Fatalf("LastError = %q, want HTTP 500 message", snap.LastError)
	}
	if got := srv.Hits(http.MethodGet, "/api/server/stats"); got != 0 {
		t.Fatalf("stats hits = %d, want 0 after failed connect", got)
	}
	if c.refreshing() {
		t.Fatalf("refresher running after failed connect")
	}
}

func TestConnect_NormalizesServerURL(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, time.Hour)

	if err := c.Connect(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	srv.WaitForStreamClients(t, 1)
	if got := c.ServerURL(); got != srv.URL {
		t.Fatalf("ServerURL() = %q, want %q", got, srv.URL)
	}
}

func TestConnect_UnreachableServer(t *testing.T) {
	srv := apitest.New(t)
	addr := srv.URL
	srv.Close()

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	if err := c.Connect(context.Background(), addr); err == nil {
		t.Fatalf("Connect returned nil error for closed server")
	}
	if got := store.Snapshot().Connectivity; got != state.Disconnected {
		t.Fatalf("Connectivity = %q, want disconnected", got)
	}
}

// blockingFetcher holds FetchStatus until released, then fails it.
type blockingFetcher struct {
	api.Fetcher
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchStatus(ctx context.Context) (*api.StatusResponse, error) {
	close(f.started)
	<-f.release
	return nil, errors.New("dial tcp: connection refused")
}

func TestConnect_StaleFailureIgnored(t *testing.T) {
	srv := apitest.New(t)
	slow := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}

	store := state.NewStore()
	c, err := New(Options{
		Store: store,
		NewClient: func(serverURL string) (api.Fetcher, error) {
			if serverURL == "http://slow.test" {
				return slow, nil
			}
			return api.NewClient(serverURL)
		},
		RefreshInterval: time.Hour,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Connect(context.Background(), "http://slow.test") }()
	<-slow.started

	connect(t, c, srv)
	close(slow.release)
	if err := <-firstErr; err == nil {
		t.Fatalf("slow Connect returned nil error, want failure")
	}

	snap := store.Snapshot()
	if snap.Connectivity != state.Connected || snap.RunState != api.RunStateRunning {
		t.Fatalf("state = %q/%q, want connected/running", snap.Connectivity, snap.RunState)
	}
	if snap.LastError != "" {
		t.Fatalf("LastError = %q, want empty", snap.LastError)
	}
	if got := c.ServerURL(); got != srv.URL {
		t.Fatalf("ServerURL = %q, want %q", got, srv.URL)
	}
}

func TestConnect_LoadFailureKeepsConnectivity(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/api/server/config", http.StatusServiceUnavailable)

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	snap := store.Snapshot()
	if snap.Connectivity != state.Connected {
		t.Fatalf("Connectivity = %q, want connected", snap.Connectivity)
	}
	if snap.HasConfig {
		t.Fatalf("HasConfig = true, want false after failed fetch")
	}
	if !snap.HasStats {
		t.Fatalf("HasStats = false, other fetches should still apply")
	}
	if !strings.Contains(snap.LastError, "config") {
		t.Fatalf("LastError = %q, want config failure", snap.LastError)
	}
}

func TestConnect_ReplacesPreviousStream(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, time.Hour)

	connect(t, c, srv)
	connect(t, c, srv)

	srv.WaitForStreamClients(t, 1)
	if got := store.Snapshot().Connectivity; got != state.Connected {
		t.Fatalf("Connectivity = %q, want connected", got)
	}
	if got := srv.Hits(http.MethodGet, "/api/server/stats"); got != 2 {
		t.Fatalf("stats hits = %d, want 2 (one per connect)", got)
	}
}

func TestPushEntry_PrependsAndCounts(t *testing.T) {
	srv := apitest.New(t)
	srv.SetStats(api.ServerStats{TotalRequests: 10})
	srv.SetLogs([]api.RequestLogEntry{{ID: "0", Status: 200}})

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	srv.Push([]byte(`{"id":"1","timestamp":"12:00:00","method":"GET","path":"/health","status":200,"responseTime":5,"clientIp":"127.0.0.1"}`))

	eventually(t, "pushed entry", func() bool { return len(store.Snapshot().Logs) == 2 })
	snap := store.Snapshot()
	if snap.Logs[0].ID != "1" || snap.Logs[0].Path != "/health" {
		t.Fatalf("front entry = %#v, want pushed entry", snap.Logs[0])
	}
	if snap.Stats.TotalRequests != 11 {
		t.Fatalf("TotalRequests = %d, want 11", snap.Stats.TotalRequests)
	}
}

func TestPushClosed_Disconnects(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)
	if !c.refreshing() {
		t.Fatalf("refresher should run while connected and running")
	}

	srv.DropStreams()

	eventually(t, "disconnect", func() bool { return store.Snapshot().Connectivity == state.Disconnected })
	if c.refreshing() {
		t.Fatalf("refresher still running after stream closed")
	}
	if err := c.ToggleServer(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ToggleServer error = %v, want ErrNotConnected", err)
	}
}

func TestToggleServer_NotConnected(t *testing.T) {
	srv := apitest.New(t)
	c := newController(t, state.NewStore(), time.Hour)

	if err := c.ToggleServer(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ToggleServer error = %v, want ErrNotConnected", err)
	}
	if srv.Hits(http.MethodPost, "/api/server/stop")+srv.Hits(http.MethodPost, "/api/server/start") != 0 {
		t.Fatalf("toggle reached the server while disconnected")
	}
}

func TestToggleServer_StopThenStart(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	if err := c.ToggleServer(context.Background()); err != nil {
		t.Fatalf("ToggleServer returned error: %v", err)
	}
	if got := store.Snapshot().RunState; got != api.RunStateStopped {
		t.Fatalf("RunState = %q, want stopped", got)
	}
	if err := c.ToggleServer(context.Background()); err != nil {
		t.Fatalf("ToggleServer returned error: %v", err)
	}
	if got := store.Snapshot().RunState; got != api.RunStateRunning {
		t.Fatalf("RunState = %q, want running", got)
	}
	if srv.Hits(http.MethodPost, "/api/server/stop") != 1 || srv.Hits(http.MethodPost, "/api/server/start") != 1 {
		t.Fatalf("stop/start hits = %d/%d, want 1/1",
			srv.Hits(http.MethodPost, "/api/server/stop"), srv.Hits(http.MethodPost, "/api/server/start"))
	}
}

func TestToggleServer_FailureKeepsRunState(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodPost, "/api/server/stop", http.StatusInternalServerError)

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	if err := c.ToggleServer(context.Background()); !api.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("ToggleServer error = %v, want HTTP 500", err)
	}
	snap := store.Snapshot()
	if snap.RunState != api.RunStateRunning {
		t.Fatalf("RunState = %q, want running", snap.RunState)
	}
	if snap.Connectivity != state.Connected {
		t.Fatalf("Connectivity = %q, want connected", snap.Connectivity)
	}
	if !strings.Contains(snap.LastError, "500") {
		t.Fatalf("LastError = %q, want HTTP 500 message", snap.LastError)
	}
}

func TestAddRoute_BlankFieldsAreIgnored(t *testing.T) {
	srv := apitest.New(t)
	srv.SetRoutes([]api.Route{{Path: "/health", Handler: "HealthHandler", Method: "GET", Enabled: true}})

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	drafts := []state.RouteDraft{
		{Path: "", Handler: "UserHandler"},
		{Path: "/api/users", Handler: "  "},
	}
	for _, d := range drafts {
		store.SetDraft(d)
		if err := c.AddRoute(context.Background()); err != nil {
			t.Fatalf("AddRoute(%#v) returned error: %v", d, err)
		}
		snap := store.Snapshot()
		if snap.Draft != d {
			t.Fatalf("Draft = %#v, want unchanged %#v", snap.Draft, d)
		}
		if len(snap.Routes) != 1 {
			t.Fatalf("routes = %#v, want unchanged", snap.Routes)
		}
		if snap.LastError != "" {
			t.Fatalf("LastError = %q, want empty", snap.LastError)
		}
	}
	if got := srv.Hits(http.MethodPost, "/api/routes"); got != 0 {
		t.Fatalf("POST /api/routes hits = %d, want 0", got)
	}
}

func TestAddRoute_PostsDraftAndRefetches(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	store.SetDraft(state.RouteDraft{Path: "/api/users", Handler: "UserHandler"})
	if err := c.AddRoute(context.Background()); err != nil {
		t.Fatalf("AddRoute returned error: %v", err)
	}

	added := srv.AddedRoutes()
	want := api.NewRoute{Path: "/api/users", Handler: "UserHandler", Method: "GET"}
	if len(added) != 1 || added[0] != want {
		t.Fatalf("added = %#v, want %#v", added, want)
	}
	snap := store.Snapshot()
	if snap.Draft != (state.RouteDraft{}) {
		t.Fatalf("Draft = %#v, want cleared", snap.Draft)
	}
	if len(snap.Routes) != 1 || snap.Routes[0].Path != "/api/users" {
		t.Fatalf("routes = %#v, want refetched /api/users", snap.Routes)
	}
	if got := srv.Hits(http.MethodGet, "/api/routes"); got != 2 {
		t.Fatalf("GET /api/routes hits = %d, want 2", got)
	}
}

func TestAddRoute_FailureKeepsDraft(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodPost, "/api/routes", http.StatusBadRequest)

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	draft := state.RouteDraft{Path: "/x", Handler: "X", Method: "post"}
	store.SetDraft(draft)
	if err := c.AddRoute(context.Background()); !api.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("AddRoute error = %v, want HTTP 400", err)
	}
	snap := store.Snapshot()
	if snap.Draft != draft {
		t.Fatalf("Draft = %#v, want %#v", snap.Draft, draft)
	}
	if snap.LastError == "" {
		t.Fatalf("LastError should be set")
	}
	if snap.Connectivity != state.Connected {
		t.Fatalf("Connectivity = %q, want connected", snap.Connectivity)
	}
}

func TestClearLogs_OnlyOnSuccess(t *testing.T) {
	srv := apitest.New(t)
	srv.SetLogs([]api.RequestLogEntry{{ID: "1"}, {ID: "2"}})

	store := state.NewStore()
	c := newController(t, store, time.Hour)
	connect(t, c, srv)

	srv.Fail(http.MethodDelete, "/api/logs", http.StatusInternalServerError)
	if err := c.ClearLogs(context.Background()); err == nil {
		t.Fatalf("ClearLogs returned nil error on HTTP 500")
	}
	if got := len(store.Snapshot().Logs); got != 2 {
		t.Fatalf("len(Logs) = %d, want 2 after failed clear", got)
	}

	srv.Fail(http.MethodDelete, "/api/logs", 0)
	store.DismissError()
	if err := c.ClearLogs(context.Background()); err != nil {
		t.Fatalf("ClearLogs returned error: %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Logs) != 0 {
		t.Fatalf("len(Logs) = %d, want 0", len(snap.Logs))
	}
	if snap.LastError != "" {
		t.Fatalf("LastError = %q, want empty", snap.LastError)
	}
}

func TestRefresher_StopsWhenServerStops(t *testing.T) {
	const interval = 20 * time.Millisecond
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, interval)
	connect(t, c, srv)

	eventually(t, "refreshed stats", func() bool {
		return srv.Hits(http.MethodGet, "/api/server/stats") >= 3
	})

	if err := c.ToggleServer(context.Background()); err != nil {
		t.Fatalf("ToggleServer returned error: %v", err)
	}
	if c.refreshing() {
		t.Fatalf("refresher still running after server stopped")
	}

	time.Sleep(3 * interval)
	before := srv.Hits(http.MethodGet, "/api/server/stats")
	time.Sleep(5 * interval)
	if after := srv.Hits(http.MethodGet, "/api/server/stats"); after != before {
		t.Fatalf("stats hits grew from %d to %d while stopped", before, after)
	}
}

func TestRefresher_IdleWhenConnectedToStoppedServer(t *testing.T) {
	srv := apitest.New(t)
	srv.SetRunning(false)
	store := state.NewStore()
	c := newController(t, store, 10*time.Millisecond)
	connect(t, c, srv)

	if got := store.Snapshot().RunState; got != api.RunStateStopped {
		t.Fatalf("RunState = %q, want stopped", got)
	}
	if c.refreshing() {
		t.Fatalf("refresher should not run for a stopped server")
	}
	time.Sleep(50 * time.Millisecond)
	if got := srv.Hits(http.MethodGet, "/api/server/stats"); got != 1 {
		t.Fatalf("stats hits = %d, want only the initial load", got)
	}
}

func TestClose_ReleasesStreamAndRefresher(t *testing.T) {
	srv := apitest.New(t)
	store := state.NewStore()
	c := newController(t, store, 10*time.Millisecond)
	connect(t, c, srv)

	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	srv.WaitForStreamClients(t, 0)
	if c.refreshing() {
		t.Fatalf("refresher running after Close")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if err := c.Connect(context.Background(), srv.URL); err == nil {
		t.Fatalf("Connect after Close returned nil error")
	}
}
