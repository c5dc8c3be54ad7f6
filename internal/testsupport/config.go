// Package testsupport provides shared fixtures for package tests:
// configs seeded with unique temp directories, a scripted capture
// worker, and a stand-in ffmpeg binary.
package testsupport

import (
	"path/filepath"
	"testing"

	"lapse/internal/config"
)

// LoopingWorker captures a single frame and then waits for the stop
// marker, matching the capture worker's marker contract.
const LoopingWorker = `out=$1
mkdir -p "$out/temp"
echo frame > "$out/temp/frame_000000.jpg"
echo "PROGRESS:10"
while [ ! -f "$out/temp/.stop" ]; do
    sleep 0.05
done
exit 0
`

// fakeFFmpegBody writes a non-empty file at the final argument, which is
// where the encoder places the output path.
const fakeFFmpegBody = `for a in "$@"; do out=$a; done
echo video > "$out"
exit 0
`

// ConfigOption allows callers to customize the generated test
// configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t          testing.TB
	baseDir    string
	cfg        *config.Config
	workerBody string
	noFFmpeg   bool
}

// NewConfig produces a config seeded with unique temp directories per
// test, a shell capture worker, and a fake ffmpeg. It defaults common
// fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Worker.Interpreter = "/bin/sh"
	cfgVal.Worker.StopGraceSecs = 1
	cfgVal.Worker.EscalationSecs = 1
	cfgVal.Finalize.WatchAttempts = 2

	builder := &configBuilder{
		t:          t,
		baseDir:    base,
		cfg:        &cfgVal,
		workerBody: LoopingWorker,
	}
	for _, opt := range opts {
		opt(builder)
	}

	cfgVal.Worker.Script = WriteScript(t, filepath.Join(base, "worker.sh"), builder.workerBody)
	if !builder.noFFmpeg {
		cfgVal.Finalize.FFmpegBinary = WriteScript(t, filepath.Join(base, "ffmpeg"), fakeFFmpegBody)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfgVal
}

// WithWorkerBody replaces the default looping worker script body.
func WithWorkerBody(body string) ConfigOption {
	return func(b *configBuilder) {
		b.workerBody = body
	}
}

// WithoutFFmpeg points finalization at a binary that does not exist so
// callers can exercise the artifact watchdog path.
func WithoutFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.noFFmpeg = true
		b.cfg.Finalize.FFmpegBinary = filepath.Join(b.baseDir, "missing-ffmpeg")
	}
}

// Customize applies arbitrary edits after the defaults are set.
func Customize(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}
