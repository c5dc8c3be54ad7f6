package history

import "time"

// Outcome is the terminal state of a recorded session.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeNoFrames     Outcome = "no_frames"
	OutcomeEncodeFailed Outcome = "encode_failed"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeFailed       Outcome = "failed"
	OutcomeStopped      Outcome = "stopped"
)

// Record is one session's row.
type Record struct {
	ID           int64
	SessionID    string
	Workspace    string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Outcome      Outcome
	FrameCount   int
	ArtifactPath string
	Codec        string
	ErrorMessage string
}

// Active reports whether the session has not reached a terminal outcome.
func (r *Record) Active() bool {
	return r.FinishedAt == nil
}
