// Package control implements the pause/stop signaling primitive between the
// session controller and the capture worker.
//
// The default strategy writes zero-byte marker files inside the session temp
// directory; the worker polls for their presence at its capture-loop
// interval, so delivery latency is bounded by that interval but has no hard
// floor. An alternative strategy delivers POSIX signals for near-immediate
// reaction on platforms that support it. Both sit behind the Channel
// interface so the controller state machine is identical under either.
package control

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Signal identifies a control condition raised for the worker. Resume is the
// absence of SignalPause rather than a third signal.
type Signal string

const (
	SignalStop  Signal = "stop"
	SignalPause Signal = "pause"
)

// Marker file names inside the session temp directory.
const (
	StopMarker  = ".stop"
	PauseMarker = ".pause"
)

// Target is the process surface a signal-based channel delivers to.
type Target interface {
	Signal(sig os.Signal) error
}

// Channel raises and clears control signals. Raising an already-active
// signal and clearing an absent one are both no-ops.
type Channel interface {
	Raise(sig Signal) error
	Clear(sig Signal) error
	Active(sig Signal) (bool, error)
	// Attach binds the worker process once it has been spawned. Only the
	// signal strategy needs it; the file strategy ignores it.
	Attach(target Target)
	// Reset clears every signal, tolerating absence. Called before spawn to
	// remove stale markers from a previous crash.
	Reset() error
}

// New returns the channel for the configured strategy. Unknown strategies
// fall back to marker files, the portable default.
func New(strategy, tempDir string) Channel {
	if strategy == "signal" {
		return &ProcessChannel{fallback: NewFileChannel(tempDir)}
	}
	return NewFileChannel(tempDir)
}

// FileChannel signals through marker files in the session temp directory.
type FileChannel struct {
	tempDir string
}

// NewFileChannel builds a marker-file channel rooted at tempDir.
func NewFileChannel(tempDir string) *FileChannel {
	return &FileChannel{tempDir: tempDir}
}

func (c *FileChannel) path(sig Signal) (string, error) {
	switch sig {
	case SignalStop:
		return filepath.Join(c.tempDir, StopMarker), nil
	case SignalPause:
		return filepath.Join(c.tempDir, PauseMarker), nil
	default:
		return "", fmt.Errorf("unknown control signal %q", sig)
	}
}

// Raise creates the marker file for sig. Idempotent.
func (c *FileChannel) Raise(sig Signal) error {
	path, err := c.path(sig)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("write %s marker: %w", sig, err)
	}
	return nil
}

// Clear removes the marker file for sig, tolerating absence.
func (c *FileChannel) Clear(sig Signal) error {
	path, err := c.path(sig)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s marker: %w", sig, err)
	}
	return nil
}

// Active reports whether the marker file for sig exists.
func (c *FileChannel) Active(sig Signal) (bool, error) {
	path, err := c.path(sig)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s marker: %w", sig, err)
	}
	return true, nil
}

// Attach is a no-op; marker files need no process handle.
func (c *FileChannel) Attach(Target) {}

// Reset clears both markers.
func (c *FileChannel) Reset() error {
	if err := c.Clear(SignalStop); err != nil {
		return err
	}
	return c.Clear(SignalPause)
}

// ProcessChannel signals through POSIX signals: SIGTERM for stop, SIGUSR1 to
// pause, SIGUSR2 to resume. Signal state is tracked locally since delivery
// leaves no filesystem trace. Before a worker is attached it falls back to
// marker files so pre-spawn resets still work.
type ProcessChannel struct {
	mu       sync.Mutex
	target   Target
	active   map[Signal]bool
	fallback *FileChannel
}

func (c *ProcessChannel) Attach(target Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	if c.active == nil {
		c.active = make(map[Signal]bool)
	}
}

func (c *ProcessChannel) Raise(sig Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return errors.New("no worker attached")
	}
	if c.active[sig] {
		return nil
	}
	var deliver os.Signal
	switch sig {
	case SignalStop:
		deliver = unix.SIGTERM
	case SignalPause:
		deliver = unix.SIGUSR1
	default:
		return fmt.Errorf("unknown control signal %q", sig)
	}
	if err := c.target.Signal(deliver); err != nil {
		return fmt.Errorf("deliver %s signal: %w", sig, err)
	}
	c.active[sig] = true
	return nil
}

func (c *ProcessChannel) Clear(sig Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active[sig] {
		return nil
	}
	// A stop cannot be unsent; clearing only resets local state.
	if sig == SignalPause && c.target != nil {
		if err := c.target.Signal(unix.SIGUSR2); err != nil {
			return fmt.Errorf("deliver resume signal: %w", err)
		}
	}
	c.active[sig] = false
	return nil
}

func (c *ProcessChannel) Active(sig Signal) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[sig], nil
}

func (c *ProcessChannel) Reset() error {
	c.mu.Lock()
	c.active = make(map[Signal]bool)
	c.mu.Unlock()
	return c.fallback.Reset()
}
