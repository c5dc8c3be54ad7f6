package ipc

import "time"

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "Lapse"

// StartRequest begins a recording session.
type StartRequest struct {
	Workspace string `json:"workspace"`
}

// StartResponse reports the launched session.
type StartResponse struct {
	Started   bool   `json:"started"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TogglePauseRequest flips the pause state of the active session.
type TogglePauseRequest struct{}

// TogglePauseResponse reports the new pause state.
type TogglePauseResponse struct {
	Paused  bool   `json:"paused"`
	Message string `json:"message"`
}

// StopRequest ends the active session.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// SessionStatus is the wire form of the controller snapshot.
type SessionStatus struct {
	State        string    `json:"state"`
	SessionID    string    `json:"session_id,omitempty"`
	Workspace    string    `json:"workspace,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	FrameCount   int       `json:"frame_count"`
	Progress     int       `json:"progress"`
	LastArtifact string    `json:"last_artifact,omitempty"`
	LastCodec    string    `json:"last_codec,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// DependencyStatus describes availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse represents combined daemon/session status information.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	Session       SessionStatus      `json:"session"`
	HistoryDBPath string             `json:"history_db_path"`
	LockPath      string             `json:"lock_path"`
	SocketPath    string             `json:"socket_path"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// HistoryRequest lists past sessions.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is the wire form of one session record.
type HistoryEntry struct {
	SessionID    string     `json:"session_id"`
	Workspace    string     `json:"workspace"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Outcome      string     `json:"outcome,omitempty"`
	FrameCount   int        `json:"frame_count"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	Codec        string     `json:"codec,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// HistoryResponse contains session records, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether the test message was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
