package domain

import (
	"encoding/json"
	"time"
)

// Event is one telemetry record emitted by the server (request timings, session lifecycle).
// Metadata is a JSON object; empty when the event carries no extra fields.
type Event struct {
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event types emitted by the server.
const (
	EventGRPCRequest  = "grpc_request"
	EventSessionSweep = "session_sweep"
)
