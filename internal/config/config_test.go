package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lapse/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFrameIntervalBounds(t *testing.T) {
	for _, interval := range []float64{0, 0.05, 61} {
		cfg := validConfig(t)
		cfg.Recording.FrameInterval = interval
		if err := cfg.Validate(); err == nil {
			t.Fatalf("frame_interval %g should be rejected", interval)
		}
	}
}

func TestVideoFPSBounds(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.VideoFPS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("video_fps 0 should be rejected")
	}
	cfg.Recording.VideoFPS = 61
	if err := cfg.Validate(); err == nil {
		t.Fatal("video_fps 61 should be rejected")
	}
}

func TestQualityBounds(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.Quality = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("quality 0 should be rejected")
	}
	cfg.Recording.Quality = 101
	if err := cfg.Validate(); err == nil {
		t.Fatal("quality 101 should be rejected")
	}
}

func TestUnknownCodecRejected(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.VideoCodec = "prores"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown codec should be rejected")
	}
}

func TestCustomOutputDirectoryMustBeAbsolute(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.UseCustomOutputDirectory = true
	cfg.Recording.OutputDirectory = "captures"
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative custom output directory should be rejected")
	}
}

func TestCustomOutputDirectoryAmbiguityGuard(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.UseCustomOutputDirectory = true
	cfg.Recording.OutputDirectory = "/data/TimeLapse"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("custom directory named like the default should be rejected")
	}
	if !strings.Contains(err.Error(), "basename") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCaptureAreaValidation(t *testing.T) {
	cfg := validConfig(t)
	cfg.Recording.CaptureArea = &config.CaptureArea{X: 0, Y: 0, Width: 0, Height: 100}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero-width capture area should be rejected")
	}
	cfg.Recording.CaptureArea = &config.CaptureArea{X: -1, Y: 0, Width: 100, Height: 100}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative origin should be rejected")
	}
	cfg.Recording.CaptureArea = &config.CaptureArea{X: 10, Y: 10, Width: 640, Height: 480}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid capture area rejected: %v", err)
	}
}

func TestLoadAppliesFrameRateFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[recording]
frame_rate = 5.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if got := cfg.Recording.FrameInterval; got != 0.2 {
		t.Fatalf("expected frame_interval 0.2 from frame_rate 5, got %g", got)
	}
}

func TestFrameIntervalWinsOverFrameRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[recording]
frame_interval = 2.0
frame_rate = 5.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Recording.FrameInterval; got != 2.0 {
		t.Fatalf("frame_interval should be authoritative, got %g", got)
	}
	if got := cfg.WorkerFrameRate(); got != 0.5 {
		t.Fatalf("expected worker frame rate 0.5, got %g", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LAPSE_NTFY_TOPIC", "https://ntfy.sh/lapse-test")
	t.Setenv("LAPSE_LOG_LEVEL", "debug")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/lapse-test" {
		t.Fatalf("env ntfy topic not applied: %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("env log level not applied: %q", cfg.Logging.Level)
	}
}

func TestOutputDirFor(t *testing.T) {
	cfg := validConfig(t)
	got := cfg.OutputDirFor("/home/user/project")
	want := filepath.Join("/home/user/project", config.DefaultOutputDirName)
	if got != want {
		t.Fatalf("OutputDirFor = %q, want %q", got, want)
	}

	cfg.Recording.UseCustomOutputDirectory = true
	cfg.Recording.OutputDirectory = "/data/captures"
	if got := cfg.OutputDirFor("/home/user/project"); got != "/data/captures" {
		t.Fatalf("custom OutputDirFor = %q", got)
	}
}

func TestStatePaths(t *testing.T) {
	cfg := validConfig(t)
	if !strings.HasSuffix(cfg.SocketPath(), "lapsed.sock") {
		t.Fatalf("unexpected socket path %q", cfg.SocketPath())
	}
	if !strings.HasSuffix(cfg.LockPath(), "lapsed.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
	if !strings.HasSuffix(cfg.HistoryDBPath(), "history.db") {
		t.Fatalf("unexpected db path %q", cfg.HistoryDBPath())
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[recording]") {
		t.Fatal("sample config missing recording section")
	}
}
