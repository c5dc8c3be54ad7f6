package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var validCodecs = map[string]struct{}{
	"h265": {},
	"av1":  {},
	"h264": {},
	"mp4v": {},
	"xvid": {},
	"mjpg": {},
}

// Validate ensures the configuration is usable. It runs at load time and
// again on the snapshot taken when a session starts.
func (c *Config) Validate() error {
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateControl(); err != nil {
		return err
	}
	if err := c.validateFinalize(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRecording() error {
	r := c.Recording
	if r.FrameInterval < 0.1 || r.FrameInterval > 60 {
		return fmt.Errorf("recording.frame_interval must be between 0.1 and 60 seconds, got %g", r.FrameInterval)
	}
	if r.VideoFPS < 1 || r.VideoFPS > 60 {
		return fmt.Errorf("recording.video_fps must be between 1 and 60, got %d", r.VideoFPS)
	}
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("recording.quality must be between 1 and 100, got %d", r.Quality)
	}
	if _, ok := validCodecs[r.VideoCodec]; !ok {
		return fmt.Errorf("recording.video_codec must be one of h265, av1, h264, mp4v, xvid, mjpg; got %q", r.VideoCodec)
	}
	if r.UseCustomOutputDirectory {
		dir := strings.TrimSpace(r.OutputDirectory)
		if dir == "" {
			return errors.New("recording.output_directory must be set when recording.use_custom_output_directory is true")
		}
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("recording.output_directory must be an absolute path when custom, got %q", dir)
		}
		// Ambiguity guard: a custom directory named like the default one
		// cannot be told apart from workspace-relative recordings.
		if strings.EqualFold(filepath.Base(dir), DefaultOutputDirName) {
			return fmt.Errorf("recording.output_directory basename must not be %q", DefaultOutputDirName)
		}
	}
	if area := r.CaptureArea; area != nil {
		if area.Width <= 0 || area.Height <= 0 {
			return fmt.Errorf("recording.capture_area must have positive width and height, got %dx%d", area.Width, area.Height)
		}
		if area.X < 0 || area.Y < 0 {
			return fmt.Errorf("recording.capture_area origin must not be negative, got (%d,%d)", area.X, area.Y)
		}
	}
	return nil
}

func (c *Config) validateWorker() error {
	if err := ensurePositiveMap(map[string]int{
		"worker.stop_grace_period": c.Worker.StopGraceSecs,
		"worker.escalation_wait":   c.Worker.EscalationSecs,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateControl() error {
	switch c.Control.Strategy {
	case "file", "signal":
		return nil
	default:
		return fmt.Errorf("control.strategy must be \"file\" or \"signal\", got %q", c.Control.Strategy)
	}
}

func (c *Config) validateFinalize() error {
	return ensurePositiveMap(map[string]int{
		"finalize.watch_interval": c.Finalize.WatchInterval,
		"finalize.watch_attempts": c.Finalize.WatchAttempts,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
