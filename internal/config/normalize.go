package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides captures environment values that take precedence over file
// settings, so deployments can steer the daemon without editing TOML.
type envOverrides struct {
	OutputDirectory string `env:"LAPSE_OUTPUT_DIRECTORY"`
	WorkerScript    string `env:"LAPSE_WORKER_SCRIPT"`
	NtfyTopic       string `env:"LAPSE_NTFY_TOPIC"`
	LogLevel        string `env:"LAPSE_LOG_LEVEL"`
}

func (c *Config) normalize() error {
	if err := c.applyEnvOverrides(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecording()
	c.normalizeWorker()
	c.normalizeControl()
	c.normalizeFinalize()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvOverrides() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	if v := strings.TrimSpace(overrides.OutputDirectory); v != "" {
		c.Recording.OutputDirectory = v
		c.Recording.UseCustomOutputDirectory = true
	}
	if v := strings.TrimSpace(overrides.WorkerScript); v != "" {
		c.Worker.Script = v
	}
	if v := strings.TrimSpace(overrides.NtfyTopic); v != "" {
		c.Notifications.NtfyTopic = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecording() {
	c.Recording.OutputDirectory = strings.TrimSpace(c.Recording.OutputDirectory)
	if c.Recording.OutputDirectory == "" && !c.Recording.UseCustomOutputDirectory {
		c.Recording.OutputDirectory = DefaultOutputDirName
	}
	// frame_interval is authoritative; the deprecated frame_rate only fills
	// the gap when the interval was never set.
	if c.Recording.FrameInterval <= 0 && c.Recording.FrameRate > 0 {
		c.Recording.FrameInterval = 1 / c.Recording.FrameRate
	}
	c.Recording.VideoCodec = strings.ToLower(strings.TrimSpace(c.Recording.VideoCodec))
	if c.Recording.VideoCodec == "" {
		c.Recording.VideoCodec = defaultVideoCodec
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.Interpreter = strings.TrimSpace(c.Worker.Interpreter)
	if c.Worker.Interpreter == "" {
		c.Worker.Interpreter = defaultInterpreter
	}
	c.Worker.Script = strings.TrimSpace(c.Worker.Script)
	if c.Worker.StopGraceSecs <= 0 {
		c.Worker.StopGraceSecs = defaultStopGrace
	}
	if c.Worker.EscalationSecs <= 0 {
		c.Worker.EscalationSecs = defaultEscalation
	}
}

func (c *Config) normalizeControl() {
	c.Control.Strategy = strings.ToLower(strings.TrimSpace(c.Control.Strategy))
	if c.Control.Strategy == "" {
		c.Control.Strategy = defaultStrategy
	}
}

func (c *Config) normalizeFinalize() {
	c.Finalize.FFmpegBinary = strings.TrimSpace(c.Finalize.FFmpegBinary)
	c.Finalize.ProjectName = strings.TrimSpace(c.Finalize.ProjectName)
	if c.Finalize.WatchInterval <= 0 {
		c.Finalize.WatchInterval = defaultWatchInterval
	}
	if c.Finalize.WatchAttempts <= 0 {
		c.Finalize.WatchAttempts = defaultWatchAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
