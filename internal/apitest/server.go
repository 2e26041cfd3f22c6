// Package apitest provides an in-process fake of the monitored server's REST
// and push surfaces for tests.
package apitest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/five82/beacon/internal/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is a scriptable fake backend. Its state is changed through the
// setters, which are safe to call while requests are in flight.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	running  bool
	stats    api.ServerStats
	routes   []api.Route
	config   api.ServerConfig
	logs     []api.RequestLogEntry
	failures map[string]int
	hits     map[string]int
	clients  map[*websocket.Conn]struct{}
	bodies   []api.NewRoute
}

// New starts a fake server that reports running and closes it on cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		running:  true,
		stats:    api.ServerStats{Uptime: "5s", MemoryUsage: "10.0 MB"},
		config:   api.ServerConfig{Port: 8080, DocumentRoot: "./static", DefaultIndex: "index.html"},
		failures: make(map[string]int),
		hits:     make(map[string]int),
		clients:  make(map[*websocket.Conn]struct{}),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countAndFail)

	r.Route("/api", func(r chi.Router) {
		r.Get("/server/status", s.handleStatus)
		r.Get("/server/stats", s.handleStats)
		r.Get("/server/config", s.handleConfig)
		r.Post("/server/start", s.handleRun(true))
		r.Post("/server/stop", s.handleRun(false))
		r.Get("/routes", s.handleRoutes)
		r.Post("/routes", s.handleAddRoute)
		r.Get("/logs", s.handleLogs)
		r.Delete("/logs", s.handleClearLogs)
	})
	r.Get("/ws/logs", s.handleStream)
	return r
}

// Close disconnects push clients and shuts the server down.
func (s *Server) Close() {
	s.DropStreams()
	s.Server.Close()
}

// countAndFail records hits per "METHOD path" and injects scripted failures.
func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.hits[key]++
		code := s.failures[key]
		s.mu.Unlock()
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every request to "METHOD path" answer with code. Zero clears it.
func (s *Server) Fail(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = code
}

// Hits returns how often "METHOD path" was requested.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// SetRunning sets the reported run state.
func (s *Server) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// SetStats replaces the reported stats.
func (s *Server) SetStats(stats api.ServerStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// SetRoutes replaces the route table.
func (s *Server) SetRoutes(routes []api.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append([]api.Route(nil), routes...)
}

// SetLogs replaces the stored log, newest first.
func (s *Server) SetLogs(logs []api.RequestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append([]api.RequestLogEntry(nil), logs...)
}

// AddedRoutes returns the bodies received by POST /api/routes.
func (s *Server) AddedRoutes() []api.NewRoute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.NewRoute(nil), s.bodies...)
}

// StreamClients returns the number of open push connections.
func (s *Server) StreamClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// WaitForStreamClients blocks until n push clients are connected.
func (s *Server) WaitForStreamClients(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.StreamClients() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stream clients = %d, want %d", s.StreamClients(), n)
}

// Push sends a raw text message to every push client.
func (s *Server) Push(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Debug("push write failed", "component", "apitest", "error", err)
		}
	}
}

// PushEntry sends a log entry to every push client, filling ID when blank.
func (s *Server) PushEntry(entry api.RequestLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	data, _ := json.Marshal(entry)
	s.Push(data)
}

// DropStreams closes every push connection from the server side.
func (s *Server) DropStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		delete(s.clients, conn)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := "stopped"
	if s.running {
		status = "running"
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"status": status, "timestamp": time.Now().UnixMilli()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	writeJSON(w, stats)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.config
	s.mu.Unlock()
	writeJSON(w, cfg)
}

func (s *Server) handleRun(running bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.SetRunning(running)
		status, msg := "running", "Server started successfully"
		if !running {
			status, msg = "stopped", "Server stopped successfully"
		}
		writeJSON(w, api.MessageResponse{Message: msg, Status: status})
	}
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	routes := append([]api.Route{}, s.routes...)
	s.mu.Unlock()
	writeJSON(w, api.RoutesResponse{Routes: routes})
}

func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var body api.NewRoute
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if body.Path == "" || body.Handler == "" || body.Method == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.routes = append(s.routes, api.Route{Path: body.Path, Handler: body.Handler, Method: body.Method, Enabled: true})
	s.mu.Unlock()
	writeJSON(w, api.MessageResponse{Message: "Route added successfully"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			limit = n
		}
	}
	s.mu.Lock()
	logs := append([]api.RequestLogEntry{}, s.logs...)
	s.mu.Unlock()
	total := len(logs)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	writeJSON(w, api.LogsResponse{Logs: logs, Total: total})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.logs = nil
	s.mu.Unlock()
	writeJSON(w, api.MessageResponse{Message: "Logs cleared successfully"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("upgrade failed", "component", "apitest", "error", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// The stream is server-to-client only; read until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
