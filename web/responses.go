package web

import (
	"time"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/gate"
	"github.com/serwidlick/backstage/logs"
)

// API error codes
const (
	CodeConsoleDisabled        = "console_disabled"
	CodeInvalidParameter       = "invalid_parameter"
	CodeInvalidBody            = "invalid_body"
	CodePersistenceUnavailable = "persistence_unavailable"
	CodeStreamingNotSupported  = "streaming_not_supported"
	CodeUnauthorized           = "unauthorized"
	CodeInternal               = "internal_error"
)

// StatusResponse represents the response for GET /status
type StatusResponse struct {
	Enabled       bool         `json:"enabled"`
	Paused        bool         `json:"paused"`
	Entries       int          `json:"entries"`
	Capacity      int          `json:"capacity"`
	Subscribers   int          `json:"subscribers"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Gate          GateResponse `json:"gate"`
	APIVersion    string       `json:"api_version"`
}

// EntryResponse represents a single log entry
type EntryResponse struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Tag       string `json:"tag"`
	Message   string `json:"message"`
	Stack     string `json:"stack,omitempty"`
}

// LogsResponse represents the response for GET /logs
type LogsResponse struct {
	Entries    []EntryResponse `json:"entries"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// GateResponse is the activation gate snapshot included in gate and
// status responses
type GateResponse struct {
	State       string `json:"state"`
	TapCount    int    `json:"tap_count"`
	FailCount   int    `json:"fail_count"`
	LockedUntil string `json:"locked_until,omitempty"`
}

// UnlockResponse represents the response for POST /gate/passcode
type UnlockResponse struct {
	Unlocked bool         `json:"unlocked"`
	Gate     GateResponse `json:"gate"`
}

// EnabledResponse reports the console enabled flag
type EnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AppendRequest is the body for POST /logs
type AppendRequest struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// SetEnabledRequest is the body for POST /enabled
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// PasscodeRequest is the body for POST /gate/passcode
type PasscodeRequest struct {
	Code string `json:"code"`
}

func toEntryResponse(e logs.Entry) EntryResponse {
	return EntryResponse{
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Tag:       e.Tag,
		Message:   e.Message,
		Stack:     e.Stack,
	}
}

func toGateResponse(st gate.Status) GateResponse {
	resp := GateResponse{
		State:     st.State.String(),
		TapCount:  st.TapCount,
		FailCount: st.FailCount,
	}
	if !st.LockedUntil.IsZero() {
		resp.LockedUntil = st.LockedUntil.Format(time.RFC3339)
	}
	return resp
}

func toStatusResponse(st backstage.Status) StatusResponse {
	resp := StatusResponse{
		Enabled:     st.Enabled,
		Paused:      st.Paused,
		Entries:     st.Entries,
		Capacity:    st.Capacity,
		Subscribers: st.Subscribers,
		Gate:        toGateResponse(st.Gate),
		APIVersion:  "v1",
	}
	if !st.StartedAt.IsZero() {
		resp.UptimeSeconds = int64(time.Since(st.StartedAt).Seconds())
	}
	return resp
}
