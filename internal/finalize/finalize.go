package finalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lapse/internal/config"
	"lapse/internal/deps"
	"lapse/internal/framestore"
	"lapse/internal/logging"
	"lapse/internal/services"
)

// DefaultProjectName is used when neither the configuration nor the
// workspace yields a usable project name.
const DefaultProjectName = "timelapse"

// videoExtensions lists output container extensions in preference order.
var videoExtensions = []string{".mp4", ".avi", ".wmv"}

var titleCaser = cases.Title(language.Und)

// Artifact describes the finished video.
type Artifact struct {
	Path   string
	Codec  string
	FPS    int
	Frames int
}

// Title returns a human-friendly name for notifications and status output.
func (a Artifact) Title() string {
	base := strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path))
	return titleCaser.String(strings.ReplaceAll(base, "_", " "))
}

// Finalizer assembles frames into a video once per session.
type Finalizer struct {
	cfg        *config.Config
	logger     *slog.Logger
	processing atomic.Bool
}

// New returns a finalizer bound to the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Finalizer {
	return &Finalizer{cfg: cfg, logger: logging.NewComponentLogger(logger, "finalize")}
}

// ErrBusy is returned when a finalization run is already in flight.
var ErrBusy = fmt.Errorf("finalization already in progress")

// Run converts the workspace's captured frames into a video. The frame
// directory is deleted before Run returns, whether or not encoding
// succeeded.
func (f *Finalizer) Run(ctx context.Context, workspace string) (*Artifact, error) {
	if !f.processing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer f.processing.Store(false)

	outputDir := f.cfg.OutputDirFor(workspace)
	frames := framestore.New(outputDir)
	defer func() {
		if err := frames.Clean(); err != nil {
			f.logger.Warn("frame cleanup failed", logging.Error(err))
		}
	}()

	count, err := frames.Count()
	if err != nil {
		return nil, services.Wrap(services.ErrEncodeFailed, "finalize", "run", "inspect frame directory", err)
	}
	if count == 0 {
		return nil, services.Wrap(services.ErrNoFrames, "finalize", "run", "no frames captured", nil)
	}

	outputPath, err := uniqueOutputPath(outputDir, f.projectName(workspace))
	if err != nil {
		return nil, services.Wrap(services.ErrEncodeFailed, "finalize", "run", "choose output path", err)
	}

	fps := f.cfg.Recording.VideoFPS
	f.logger.Info("finalizing session",
		logging.Int("frames", count),
		logging.Int("fps", fps),
		logging.String("output", outputPath),
	)

	if !deps.FFmpegAvailable(f.cfg) {
		f.logger.Info("ffmpeg unavailable, waiting for worker-encoded artifact")
		artifact, err := f.await(ctx, outputDir, outputPath, count, fps)
		if err != nil {
			return nil, err
		}
		return artifact, nil
	}

	codec, err := f.encode(ctx, frames, outputPath, fps)
	if err != nil {
		return nil, err
	}
	return &Artifact{Path: outputPath, Codec: codec, FPS: fps, Frames: count}, nil
}

// projectName resolves the artifact base name: explicit configuration,
// else the workspace folder name, else a fixed fallback.
func (f *Finalizer) projectName(workspace string) string {
	if name := strings.TrimSpace(f.cfg.Finalize.ProjectName); name != "" {
		return sanitizeProjectName(name)
	}
	if base := filepath.Base(filepath.Clean(workspace)); base != "" && base != "." && base != string(filepath.Separator) {
		return sanitizeProjectName(base)
	}
	return DefaultProjectName
}

func sanitizeProjectName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return DefaultProjectName
	}
	return cleaned
}

// uniqueOutputPath picks the first {project}{n}{ext} that does not already
// exist, counting n up from 1 and trying extensions in preference order.
func uniqueOutputPath(dir, project string) (string, error) {
	for n := 1; n < 10000; n++ {
		for _, ext := range videoExtensions {
			candidate := filepath.Join(dir, fmt.Sprintf("%s%d%s", project, n, ext))
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, nil
			} else if err != nil && !os.IsNotExist(err) {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("no free output name for project %q in %s", project, dir)
}

// await polls for a worker-produced artifact until one exists with a
// non-zero size, or attempts run out. The worker only receives the output
// directory, so it cannot know the unique path computed here; the legacy
// capture script writes a fixed name into that directory. The first
// non-empty candidate is moved onto the unique path.
func (f *Finalizer) await(ctx context.Context, outputDir, path string, frames, fps int) (*Artifact, error) {
	interval := time.Duration(f.cfg.Finalize.WatchInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	attempts := f.cfg.Finalize.WatchAttempts
	if attempts <= 0 {
		attempts = 60
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrTimeout, "finalize", "await", "canceled waiting for artifact", ctx.Err())
		case <-ticker.C:
		}
		found, size := workerArtifact(outputDir, path)
		if found == "" {
			continue
		}
		if found != path {
			if err := os.Rename(found, path); err != nil {
				f.logger.Warn("move worker artifact failed",
					logging.String("from", found),
					logging.String("to", path),
					logging.Error(err),
				)
				path = found
			}
		}
		f.logger.Info("worker-encoded artifact ready",
			logging.String("path", path),
			logging.Int64("size_bytes", size),
		)
		return &Artifact{Path: path, Codec: f.cfg.Recording.VideoCodec, FPS: fps, Frames: frames}, nil
	}
	return nil, services.Wrap(services.ErrTimeout, "finalize", "await",
		fmt.Sprintf("artifact %s not produced after %d attempts", filepath.Base(path), attempts), nil)
}

// workerArtifact returns the first non-empty video candidate in the output
// directory: the computed unique path, then the fixed names the worker
// writes, one per container extension in preference order.
func workerArtifact(outputDir, computed string) (string, int64) {
	candidates := make([]string, 0, len(videoExtensions)+1)
	candidates = append(candidates, computed)
	for _, ext := range videoExtensions {
		candidates = append(candidates, filepath.Join(outputDir, DefaultProjectName+ext))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
			return candidate, info.Size()
		}
	}
	return "", 0
}
