// Package framestore owns the temp-directory convention for captured frames.
//
// The worker writes frames as frame_000000.jpg, frame_000001.jpg, ... inside
// <outputDir>/temp. Indexing is zero-based, matching the worker's counter.
// Only the worker writes frame files and only the finalizer cleans them; the
// controller never touches frames directly.
package framestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// TempDirName is the subdirectory under the session output directory.
	TempDirName = "temp"
	// FramePrefix and FrameExt bound the frame filename pattern.
	FramePrefix = "frame_"
	FrameExt    = ".jpg"
)

// Pattern is the printf-style frame filename pattern, shared with the worker
// invocation and the ffmpeg input sequence.
const Pattern = FramePrefix + "%06d" + FrameExt

// Store scopes frame-file operations to one session's temp directory.
type Store struct {
	dir string
}

// New builds a Store for the session rooted at outputDir.
func New(outputDir string) *Store {
	return &Store{dir: filepath.Join(outputDir, TempDirName)}
}

// Dir returns the temp directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Ensure creates the temp directory.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	return nil
}

// FramePath returns the path of the frame at the given zero-based index.
func (s *Store) FramePath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(Pattern, index))
}

// List returns the frame filenames in capture order. A missing temp
// directory yields an empty list, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read temp directory: %w", err)
	}
	frames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, FramePrefix) && strings.HasSuffix(name, FrameExt) {
			frames = append(frames, name)
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// Count returns the number of captured frames.
func (s *Store) Count() (int, error) {
	frames, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(frames), nil
}

// HasFrames reports whether at least one frame was captured. This is the
// sole gate for attempting finalization.
func (s *Store) HasFrames() (bool, error) {
	count, err := s.Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Clean deletes the temp directory and everything inside it, tolerating
// absence. Runs unconditionally after finalization, success or failure.
func (s *Store) Clean() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove temp directory: %w", err)
	}
	return nil
}
