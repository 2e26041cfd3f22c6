// Package syncer keeps the dashboard state in step with the remote server.
//
// The Controller owns the API client, the live push stream and the stats
// refresher. It is driven by user actions (Connect, ToggleServer, AddRoute,
// ClearLogs), by the refresher ticker and by push events. Every remote
// failure ends up in the store's error message; none escapes as a panic.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/five82/beacon/internal/api"
	"github.com/five82/beacon/internal/push"
	"github.com/five82/beacon/internal/state"
)

const (
	// DefaultRefreshInterval is the stats refresh cadence while the server runs.
	DefaultRefreshInterval = 5 * time.Second
	// DefaultLogLimit bounds the initial log fetch.
	DefaultLogLimit = state.LogCapacity
	defaultMethod   = "GET"
)

// ErrNotConnected is returned by actions that need a connected server.
var ErrNotConnected = errors.New("not connected")

// ClientFactory builds an API client for a server URL.
type ClientFactory func(serverURL string) (api.Fetcher, error)

// StreamDialer opens the push log stream for a server URL.
type StreamDialer func(ctx context.Context, serverURL string, handler push.Handler) (io.Closer, error)

// Options configure a Controller.
type Options struct {
	Store           *state.Store
	NewClient       ClientFactory // nil uses api.NewClient
	Dial            StreamDialer  // nil uses push.Dial
	RefreshInterval time.Duration // zero uses DefaultRefreshInterval
	LogLimit        int           // zero uses DefaultLogLimit
	Logger          *slog.Logger
}

// Controller synchronizes a state.Store with one remote server at a time.
type Controller struct {
	store     *state.Store
	newClient ClientFactory
	dial      StreamDialer
	interval  time.Duration
	logLimit  int
	log       *slog.Logger

	unsubscribe func()

	mu        sync.Mutex
	client    api.Fetcher
	serverURL string
	stream    io.Closer
	gen       uint64
	refresher *refresher
	closed    bool
}

type refresher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a controller bound to opts.Store.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("store is nil")
	}
	c := &Controller{
		store:     opts.Store,
		newClient: opts.NewClient,
		dial:      opts.Dial,
		interval:  opts.RefreshInterval,
		logLimit:  opts.LogLimit,
		log:       opts.Logger,
	}
	if c.newClient == nil {
		c.newClient = func(serverURL string) (api.Fetcher, error) {
			client, err := api.NewClient(serverURL)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	if c.dial == nil {
		c.dial = dialPush
	}
	if c.interval <= 0 {
		c.interval = DefaultRefreshInterval
	}
	if c.logLimit <= 0 {
		c.logLimit = DefaultLogLimit
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "syncer")
	c.unsubscribe = c.store.Subscribe(c.reconcileRefresher)
	return c, nil
}

func dialPush(ctx context.Context, serverURL string, handler push.Handler) (io.Closer, error) {
	a, err := push.Dial(ctx, serverURL, handler)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ServerURL returns the URL of the last connect attempt, normalized once the
// server has answered.
func (c *Controller) ServerURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverURL
}

// Connect replaces any existing connection with one to serverURL. On success
// the dashboard is loaded and the push stream opened; on failure the store is
// left disconnected with the run state unknown and the error recorded.
func (c *Controller) Connect(ctx context.Context, serverURL string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("controller is closed")
	}
	c.gen++
	gen := c.gen
	old := c.stream
	c.stream = nil
	c.client = nil
	c.serverURL = serverURL
	c.stopRefresherLocked()
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.log.Debug("close previous stream", "error", err)
		}
	}

	c.store.DismissError()
	c.store.SetConnectivity(state.Connecting)

	client, err := c.newClient(serverURL)
	if err != nil {
		c.connectFailed(gen, err)
		return err
	}
	status, err := client.FetchStatus(ctx)
	if err != nil {
		c.connectFailed(gen, err)
		return err
	}

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return context.Canceled
	}
	c.client = client
	c.serverURL = client.BaseURL()
	c.mu.Unlock()

	c.log.Info("connected", "url", serverURL, "run_state", status.RunState())
	c.store.SetRunState(status.RunState())
	c.store.SetConnectivity(state.Connected)

	c.load(ctx, client)
	c.openStream(ctx, gen, serverURL)
	return nil
}

// connectFailed records a failed attempt unless a newer Connect superseded it.
func (c *Controller) connectFailed(gen uint64, err error) {
	if !c.current(gen) {
		c.log.Debug("superseded connect failed", "error", err)
		return
	}
	c.log.Warn("connect failed", "error", err)
	c.store.SetConnectivity(state.Disconnected)
	c.store.SetRunState(api.RunStateUnknown)
	c.store.SetError(fmt.Sprintf("Failed to connect: %v", err))
}

// load fetches stats, routes, config and recent logs once each. A failed
// fetch leaves its slice of the state untouched.
func (c *Controller) load(ctx context.Context, client api.Fetcher) {
	if stats, err := client.FetchStats(ctx); err != nil {
		c.fail("load stats", err)
	} else {
		c.store.SetStats(*stats)
	}
	if routes, err := client.FetchRoutes(ctx); err != nil {
		c.fail("load routes", err)
	} else {
		c.store.SetRoutes(routes)
	}
	if cfg, err := client.FetchConfig(ctx); err != nil {
		c.fail("load config", err)
	} else {
		c.store.SetConfig(*cfg)
	}
	if logs, err := client.FetchLogs(ctx, c.logLimit); err != nil {
		c.fail("load logs", err)
	} else {
		c.store.SetLogs(logs)
	}
}

func (c *Controller) openStream(ctx context.Context, gen uint64, serverURL string) {
	stream, err := c.dial(ctx, serverURL, c.streamHandler(gen))
	if err != nil {
		if !c.current(gen) {
			return
		}
		c.log.Warn("log stream unavailable", "url", serverURL, "error", err)
		c.store.SetConnectivity(state.Disconnected)
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		_ = stream.Close()
		return
	}
	c.stream = stream
	c.mu.Unlock()
}

// streamHandler maps push events for connection gen onto the store. Events
// from a superseded connection are ignored.
func (c *Controller) streamHandler(gen uint64) push.Handler {
	return func(ev push.Event) {
		if !c.current(gen) {
			return
		}
		switch ev.Kind {
		case push.Opened:
			c.store.SetConnectivity(state.Connected)
		case push.Entry:
			c.store.PushLog(ev.Entry)
		case push.Closed:
			c.log.Info("log stream closed", "error", ev.Err)
			c.store.SetConnectivity(state.Disconnected)
		}
	}
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && !c.closed
}

func (c *Controller) connectedClient() (api.Fetcher, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil || !c.store.Snapshot().IsConnected() {
		return nil, ErrNotConnected
	}
	return client, nil
}

// ToggleServer starts a stopped (or unknown) server and stops a running one,
// then refetches its status. Failures leave the run state as it was.
func (c *Controller) ToggleServer(ctx context.Context) error {
	client, err := c.connectedClient()
	if err != nil {
		return err
	}
	start := c.store.Snapshot().RunState != api.RunStateRunning

	if err := client.SetRunning(ctx, start); err != nil {
		action := "stop server"
		if start {
			action = "start server"
		}
		return c.fail(action, err)
	}
	status, err := client.FetchStatus(ctx)
	if err != nil {
		return c.fail("refresh status", err)
	}
	c.store.SetRunState(status.RunState())
	return nil
}

// AddRoute registers the current draft as a route. It does nothing when the
// draft path or handler is blank.
func (c *Controller) AddRoute(ctx context.Context) error {
	draft := c.store.Snapshot().Draft
	path := strings.TrimSpace(draft.Path)
	handler := strings.TrimSpace(draft.Handler)
	if path == "" || handler == "" {
		return nil
	}
	client, err := c.connectedClient()
	if err != nil {
		return err
	}

	method := strings.ToUpper(strings.TrimSpace(draft.Method))
	if method == "" {
		method = defaultMethod
	}
	if err := client.AddRoute(ctx, api.NewRoute{Path: path, Handler: handler, Method: method}); err != nil {
		return c.fail("add route", err)
	}
	c.store.ClearDraft()

	routes, err := client.FetchRoutes(ctx)
	if err != nil {
		return c.fail("load routes", err)
	}
	c.store.SetRoutes(routes)
	return nil
}

// ClearLogs deletes the server's request log and, on success, the local one.
func (c *Controller) ClearLogs(ctx context.Context) error {
	client, err := c.connectedClient()
	if err != nil {
		return err
	}
	if err := client.ClearLogs(ctx); err != nil {
		return c.fail("clear logs", err)
	}
	c.store.ClearLogs()
	return nil
}

func (c *Controller) refreshStats(ctx context.Context, client api.Fetcher) error {
	stats, err := client.FetchStats(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.fail("refresh stats", err)
	}
	c.store.SetStats(*stats)
	return nil
}

// fail logs err and surfaces it as the banner message.
func (c *Controller) fail(action string, err error) error {
	c.log.Warn(action+" failed", "error", err)
	c.store.SetError(fmt.Sprintf("Failed to %s: %v", action, err))
	return fmt.Errorf("%s: %w", action, err)
}

// reconcileRefresher runs after every store mutation and keeps the refresher
// running exactly while the server is connected and running.
func (c *Controller) reconcileRefresher() {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.store.Snapshot()
	want := !c.closed && c.client != nil &&
		snap.Connectivity == state.Connected && snap.RunState == api.RunStateRunning

	switch {
	case want && c.refresher == nil:
		c.startRefresherLocked(c.client)
	case !want && c.refresher != nil:
		c.stopRefresherLocked()
	}
}

func (c *Controller) startRefresherLocked(client api.Fetcher) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &refresher{cancel: cancel, done: make(chan struct{})}
	c.refresher = r
	c.log.Debug("stats refresher started", "interval", c.interval)

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.refreshStats(ctx, client)
			}
		}
	}()
}

func (c *Controller) stopRefresherLocked() {
	if c.refresher == nil {
		return
	}
	c.refresher.cancel()
	c.refresher = nil
	c.log.Debug("stats refresher stopped")
}

func (c *Controller) refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresher != nil
}

// Close stops the refresher, closes the push stream and detaches from the
// store. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	stream := c.stream
	c.stream = nil
	c.client = nil
	var done chan struct{}
	if c.refresher != nil {
		done = c.refresher.done
	}
	c.stopRefresherLocked()
	c.mu.Unlock()

	c.unsubscribe()
	if done != nil {
		<-done
	}
	if stream != nil {
		return stream.Close()
	}
	return nil
}
