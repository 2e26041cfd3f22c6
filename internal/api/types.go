package api

import (
	"encoding/json"
	"strings"
)

// RunState is the remote server's own run status.
type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateStopped RunState = "stopped"
	RunStateUnknown RunState = "unknown"
)

// ParseRunState maps a wire status to a RunState. Anything other than
// running or stopped is unknown.
func ParseRunState(value string) RunState {
	switch RunState(strings.ToLower(strings.TrimSpace(value))) {
	case RunStateRunning:
		return RunStateRunning
	case RunStateStopped:
		return RunStateStopped
	default:
		return RunStateUnknown
	}
}

// StatusResponse mirrors /api/server/status.
type StatusResponse struct {
	Status    string          `json:"status"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// RunState returns the parsed run state.
func (s StatusResponse) RunState() RunState {
	return ParseRunState(s.Status)
}

// ServerStats mirrors /api/server/stats.
type ServerStats struct {
	Uptime            string   `json:"uptime"`
	TotalRequests     int64    `json:"totalRequests"`
	ActiveConnections int      `json:"activeConnections"`
	MemoryUsage       string   `json:"memoryUsage"`
	CPUUsage          *float64 `json:"cpuUsage,omitempty"`
}

// Route is a single entry of the server's route table.
type Route struct {
	Path    string `json:"path"`
	Handler string `json:"handler"`
	Method  string `json:"method"`
	Enabled bool   `json:"enabled"`
}

// RoutesResponse mirrors GET /api/routes.
type RoutesResponse struct {
	Routes []Route `json:"routes"`
}

// NewRoute is the body of POST /api/routes.
type NewRoute struct {
	Path    string `json:"path"`
	Handler string `json:"handler"`
	Method  string `json:"method"`
}

// ServerConfig mirrors /api/server/config.
type ServerConfig struct {
	Port           int    `json:"port"`
	DocumentRoot   string `json:"documentRoot"`
	DefaultIndex   string `json:"defaultIndex"`
	MaxConnections int    `json:"maxConnections,omitempty"`
	ThreadPoolSize int    `json:"threadPoolSize,omitempty"`
}

// RequestLogEntry is one served request as reported by the server, either
// via /api/logs or the push channel.
type RequestLogEntry struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Status       int    `json:"status"`
	ResponseTime int64  `json:"responseTime"`
	ClientIP     string `json:"clientIp"`
	UserAgent    string `json:"userAgent,omitempty"`
}

// LogsResponse mirrors GET /api/logs.
type LogsResponse struct {
	Logs  []RequestLogEntry `json:"logs"`
	Total int               `json:"total,omitempty"`
}

// MessageResponse is the acknowledgement returned by mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// StatusClass groups HTTP status codes for display.
type StatusClass int

const (
	StatusSuccess StatusClass = iota
	StatusCaution
	StatusWarning
	StatusFailure
)

// ClassifyStatus maps 2xx to success, 3xx to caution, 4xx to warning and
// everything else to error.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return StatusSuccess
	case code >= 300 && code < 400:
		return StatusCaution
	case code >= 400 && code < 500:
		return StatusWarning
	default:
		return StatusFailure
	}
}
