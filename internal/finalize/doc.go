// Package finalize turns a completed capture session's frame directory
// into a single video artifact.
//
// The finalizer checks that frames exist, picks a collision-free output
// path, and encodes with ffmpeg, walking a codec fallback chain until one
// attempt produces a non-empty file. When ffmpeg is not installed the
// capture worker encodes the video itself and the finalizer degrades to a
// watchdog that polls for the artifact. The frame directory is removed
// before the finalizer returns, regardless of outcome.
package finalize
