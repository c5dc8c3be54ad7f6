package session

import (
	"sync"
	"sync/atomic"
	"time"

	"lapse/internal/config"
	"lapse/internal/control"
	"lapse/internal/framestore"
	"lapse/internal/worker"
)

// State is the controller's lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateRecording  State = "recording"
	StatePaused     State = "paused"
	StateStopping   State = "stopping"
	StateFinalizing State = "finalizing"
)

// activeSession holds everything belonging to one recording run. The
// config snapshot is frozen at start; later reloads do not touch it.
type activeSession struct {
	id            string
	workspace     string
	startedAt     time.Time
	cfg           *config.Config
	handle        *worker.Handle
	channel       control.Channel
	frames        *framestore.Store
	progress      atomic.Int32
	stopRequested atomic.Bool
	finalizeOnce  sync.Once
	done          chan struct{}
}

// Status is a point-in-time snapshot of the controller for the CLI.
type Status struct {
	State        State     `json:"state"`
	SessionID    string    `json:"session_id,omitempty"`
	Workspace    string    `json:"workspace,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	FrameCount   int       `json:"frame_count"`
	Progress     int       `json:"progress"`
	LastArtifact string    `json:"last_artifact,omitempty"`
	LastCodec    string    `json:"last_codec,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Active reports whether a session is in flight.
func (s Status) Active() bool {
	return s.State != StateIdle
}
