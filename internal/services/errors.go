// Package services defines the shared error taxonomy for lapse components.
//
// Errors are tagged with sentinel markers so callers can classify outcomes
// with errors.Is without parsing message text.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyRunning is returned when a session start is rejected because
	// another session is active.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrNoActiveSession is returned by pause/stop when no session exists.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidConfig marks configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrWorkerSpawn marks failures launching the capture worker process.
	ErrWorkerSpawn = errors.New("worker spawn failed")
	// ErrNoFrames marks sessions that ended before any frame was captured.
	ErrNoFrames = errors.New("no frames captured")
	// ErrEncodeFailed marks finalization runs that exhausted every codec.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrTimeout marks bounded waits that ran out of attempts.
	ErrTimeout = errors.New("timeout")
	// ErrTermination marks escalation sequences that ended without a
	// confirmed worker exit. Best-effort; not fatal to the session outcome.
	ErrTermination = errors.New("worker termination unconfirmed")
	// ErrExternalTool marks failures of external binaries (ffmpeg, worker).
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Notice reports whether err is a user notice rather than a failure. Notices
// surface as informational messages and never mark the session failed.
func Notice(err error) bool {
	return errors.Is(err, ErrNoActiveSession)
}
