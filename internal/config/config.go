package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for daemon state and logs.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// CaptureArea restricts capture to a screen rectangle, in pixels.
type CaptureArea struct {
	X      int `toml:"x" json:"x"`
	Y      int `toml:"y" json:"y"`
	Width  int `toml:"width" json:"width"`
	Height int `toml:"height" json:"height"`
}

// Recording contains the per-session capture parameters. A session takes an
// immutable snapshot of these at start time.
type Recording struct {
	OutputDirectory          string       `toml:"output_directory"`
	UseCustomOutputDirectory bool         `toml:"use_custom_output_directory"`
	FrameInterval            float64      `toml:"frame_interval"`
	FrameRate                float64      `toml:"frame_rate"` // deprecated: inverse of frame_interval
	VideoFPS                 int          `toml:"video_fps"`
	Quality                  int          `toml:"quality"`
	VideoCodec               string       `toml:"video_codec"`
	MultiMonitor             bool         `toml:"multi_monitor"`
	CaptureArea              *CaptureArea `toml:"capture_area"`
}

// Worker contains the capture worker invocation and termination settings.
type Worker struct {
	Interpreter    string `toml:"interpreter"`
	Script         string `toml:"script"`
	StopGraceSecs  int    `toml:"stop_grace_period"`
	EscalationSecs int    `toml:"escalation_wait"`
}

// Control selects the signaling strategy between controller and worker.
type Control struct {
	Strategy string `toml:"strategy"` // "file" (marker files) or "signal" (POSIX signals)
}

// Finalize contains video assembly settings and watchdog bounds.
type Finalize struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	ProjectName   string `toml:"project_name"`
	WatchInterval int    `toml:"watch_interval"`
	WatchAttempts int    `toml:"watch_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lapse.
//
// Sections by subsystem:
//   - Paths: log and daemon state directories
//   - Recording: capture parameters snapshotted per session
//   - Worker: external capture process invocation and termination timing
//   - Control: pause/stop signaling strategy
//   - Finalize: encoder selection and artifact watchdog bounds
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Recording     Recording     `toml:"recording"`
	Worker        Worker        `toml:"worker"`
	Control       Control       `toml:"control"`
	Finalize      Finalize      `toml:"finalize"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lapse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lapse.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OutputDirFor resolves the recording output directory for the given
// workspace. A custom directory is taken verbatim (validated absolute);
// otherwise the configured name is joined under the workspace.
func (c *Config) OutputDirFor(workspace string) string {
	if c.Recording.UseCustomOutputDirectory {
		return c.Recording.OutputDirectory
	}
	name := strings.TrimSpace(c.Recording.OutputDirectory)
	if name == "" {
		name = DefaultOutputDirName
	}
	return filepath.Join(workspace, name)
}

// Clone returns a deep copy. Sessions freeze their settings at start time
// so a config reload cannot change a recording in flight.
func (c *Config) Clone() *Config {
	dup := *c
	if c.Recording.CaptureArea != nil {
		area := *c.Recording.CaptureArea
		dup.Recording.CaptureArea = &area
	}
	return &dup
}

// CaptureInterval returns the authoritative seconds-between-frames value.
// frame_interval wins; the deprecated frame_rate is only consulted during
// normalization when the interval is unset.
func (c *Config) CaptureInterval() float64 {
	return c.Recording.FrameInterval
}

// WorkerFrameRate returns the frames-per-second value passed to the worker,
// which keeps the legacy positional-argument contract.
func (c *Config) WorkerFrameRate() float64 {
	if c.Recording.FrameInterval <= 0 {
		return 0
	}
	return 1 / c.Recording.FrameInterval
}

// FFmpegBinary returns the ffmpeg executable used for finalization.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Finalize.FFmpegBinary) == "" {
		return "ffmpeg"
	}
	return c.Finalize.FFmpegBinary
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "lapsed.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lapsed.lock")
}

// HistoryDBPath returns the session history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
