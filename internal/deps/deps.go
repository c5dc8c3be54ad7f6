// Package deps reports availability of the external tools lapse shells out
// to, plus filesystem preflight checks run before a session starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"lapse/internal/config"
)

// Requirement defines an external dependency lapse relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckSystemDeps evaluates the external tools for the given config. Both the
// daemon status surface and the CLI use this to avoid duplicating the list.
func CheckSystemDeps(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "Worker interpreter",
			Command:     cfg.Worker.Interpreter,
			Description: "Runs the capture worker script",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Preferred encoder for finalization",
			Optional:    true,
		},
	}
	return CheckBinaries(requirements)
}

// FFmpegAvailable reports whether the configured ffmpeg binary resolves.
// When it does not, finalization delegates encoding to the worker.
func FFmpegAvailable(cfg *config.Config) bool {
	_, err := exec.LookPath(cfg.FFmpegBinary())
	return err == nil
}
