package domain

import "time"

// Event types emitted by the HTTP pipeline and the gRPC interceptors.
const (
	EventHTTPRequest    = "http_request"
	EventGRPCRequest    = "grpc_request"
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLogout         = "logout"
	EventSessionEvicted = "session_evicted"
)

// AuthEvent is one telemetry event. It is serialized as JSON onto the event topic and
// read back by the worker.
type AuthEvent struct {
	ID        string            `json:"id"`
	EventType string            `json:"eventType"`
	Source    string            `json:"source"`
	Username  string            `json:"username,omitempty"`
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Status    int               `json:"status,omitempty"`
	Code      string            `json:"code,omitempty"`
	LatencyMS int64             `json:"latencyMs,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
