// Package push streams request log entries from the server's WebSocket log
// channel.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/beacon/internal/api"
)

// StreamPath is the log stream endpoint on the monitored server.
const StreamPath = "/ws/logs"

const closeGracePeriod = time.Second

// EventKind describes a connection lifecycle step.
type EventKind int

const (
	Opened EventKind = iota
	Entry
	Closed
)

func (k EventKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Entry:
		return "entry"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to the Handler for every lifecycle step and every
// well-formed inbound log entry.
type Event struct {
	Kind    EventKind
	Entry   api.RequestLogEntry
	Err     error
	Adapter *Adapter
}

// Handler receives adapter events. It is called from the adapter's reader
// goroutine and must not block for long.
type Handler func(Event)

// Adapter owns one WebSocket connection to the log stream.
type Adapter struct {
	url     string
	conn    *websocket.Conn
	handler Handler

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// StreamURL derives the log stream URL from a server URL: http maps to ws,
// https maps to wss and StreamPath is appended to any path prefix.
func StreamURL(serverURL string) (string, error) {
	u, err := api.ParseServerURL(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += StreamPath
	return u.String(), nil
}

// Dial opens the log stream and starts reading. The handler receives Opened
// before Dial returns, then Entry events, then a single Closed event unless
// the adapter was closed by the caller.
func Dial(ctx context.Context, serverURL string, handler Handler) (*Adapter, error) {
	target, err := StreamURL(serverURL)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		handler = func(Event) {}
	}

	header := http.Header{}
	header.Set("User-Agent", "beacon/0.1")
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	a := &Adapter{
		url:     target,
		conn:    conn,
		handler: handler,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	slog.Debug("log stream opened", "component", "push", "url", target)
	handler(Event{Kind: Opened, Adapter: a})
	go a.readLoop()
	return a, nil
}

// Done is closed once the reader goroutine has exited.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Close releases the connection and waits for the reader to exit. It is safe
// to call more than once and from any goroutine except the handler.
func (a *Adapter) Close() error {
	if a == nil {
		return nil
	}
	var err error
	a.closeOnce.Do(func() {
		close(a.closing)
		deadline := time.Now().Add(closeGracePeriod)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = a.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		err = a.conn.Close()
	})
	<-a.done
	return err
}

func (a *Adapter) readLoop() {
	defer close(a.done)

	for {
		msgType, data, err := a.conn.ReadMessage()
		if err != nil {
			select {
			case <-a.closing:
				// Caller-initiated close; the owner already knows.
			default:
				_ = a.conn.Close()
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					err = nil
				}
				slog.Info("log stream closed", "component", "push", "url", a.url, "error", err)
				a.handler(Event{Kind: Closed, Err: err, Adapter: a})
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		entry, err := DecodeEntry(data)
		if err != nil {
			slog.Warn("dropping malformed log message", "component", "push", "error", err)
			continue
		}
		a.handler(Event{Kind: Entry, Entry: entry, Adapter: a})
	}
}

// ErrEmptyMessage is returned by DecodeEntry for blank payloads.
var ErrEmptyMessage = errors.New("empty message")

// DecodeEntry parses a single pushed log entry.
func DecodeEntry(data []byte) (api.RequestLogEntry, error) {
	var entry api.RequestLogEntry
	if len(data) == 0 {
		return entry, ErrEmptyMessage
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return api.RequestLogEntry{}, fmt.Errorf("decode log entry: %w", err)
	}
	return entry, nil
}
