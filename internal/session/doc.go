// Package session owns the recording lifecycle. A single controller moves
// one session at a time through Idle, Starting, Recording, Paused,
// Stopping, and Finalizing, driving the capture worker, the control
// channel, the finalizer, history, and notifications.
//
// Start, TogglePause, and Stop return quickly; the slow parts (worker
// shutdown, encoding) run on background goroutines and funnel into a
// single exit handler guarded by sync.Once.
package session
