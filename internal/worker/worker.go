package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"lapse/internal/config"
	"lapse/internal/logging"
	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// Line-protocol prefixes emitted by the worker.
const (
	progressPrefix = "PROGRESS:"
	infoPrefix     = "INFO:"
	errorPrefix    = "ERROR:"
)

// Options describes one worker invocation.
type Options struct {
	Interpreter  string
	Script       string
	OutputDir    string
	FrameRate    float64 // frames per second, legacy positional contract
	VideoFPS     int
	Quality      int
	CaptureArea  *config.CaptureArea
	MultiMonitor bool
	Codec        string
}

// Events receives protocol callbacks. Any field may be nil.
type Events struct {
	// Progress receives PROGRESS:<0-100> percentages.
	Progress func(percent int)
	// Info receives INFO: stdout lines.
	Info func(message string)
	// Fault receives stderr ERROR: lines, which are surfaced to the user
	// without terminating the session.
	Fault func(message string)
	// Exit fires exactly once after the process has fully terminated.
	Exit func(code int)
}

// Args builds the positional + flag argument list for the worker script.
func (o Options) Args() ([]string, error) {
	args := []string{
		o.Script,
		o.OutputDir,
		strconv.FormatFloat(o.FrameRate, 'f', -1, 64),
		strconv.Itoa(o.VideoFPS),
		strconv.Itoa(o.Quality),
	}
	if o.CaptureArea != nil {
		area, err := json.Marshal(o.CaptureArea)
		if err != nil {
			return nil, fmt.Errorf("serialize capture area: %w", err)
		}
		args = append(args, string(area))
	}
	if o.MultiMonitor {
		args = append(args, "--multi-monitor")
	}
	if codec := strings.TrimSpace(o.Codec); codec != "" {
		args = append(args, "--codec", codec)
	}
	return args, nil
}

// Handle tracks a running worker process.
type Handle struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exited   atomic.Bool
	exitCode atomic.Int32
}

// Start spawns the worker and begins consuming its output. The returned
// handle reports exit through Handle.Done and the Events.Exit callback.
func Start(ctx context.Context, opts Options, events Events, logger *slog.Logger) (*Handle, error) {
	if strings.TrimSpace(opts.Script) == "" {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn", "worker script not configured", nil)
	}
	if _, err := os.Stat(opts.Script); err != nil {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn", fmt.Sprintf("worker script %q not found", opts.Script), err)
	}
	args, err := opts.Args()
	if err != nil {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn", "build arguments", err)
	}

	log := logging.NewComponentLogger(logger, "worker")

	cmd := commandContext(ctx, opts.Interpreter, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn", "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn", "stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrWorkerSpawn, "worker", "spawn",
			fmt.Sprintf("launch %s", opts.Interpreter), err)
	}

	log.Info("worker started",
		logging.Int("pid", cmd.Process.Pid),
		logging.String("script", opts.Script),
		logging.Float64("frame_rate", opts.FrameRate),
	)

	h := &Handle{cmd: cmd, done: make(chan struct{})}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanStdout(stdout, events, log)
	}()
	go func() {
		defer wg.Done()
		scanStderr(stderr, events, log)
	}()

	go func() {
		wg.Wait()
		err := cmd.Wait()
		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
				log.Error("worker wait failed", logging.Error(err))
			}
		}
		h.exitCode.Store(int32(code))
		h.exited.Store(true)
		close(h.done)
		log.Info("worker exited", logging.Int("exit_code", code))
		if events.Exit != nil {
			events.Exit(code)
		}
	}()

	return h, nil
}

func scanStdout(r io.Reader, events Events, log *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, progressPrefix):
			raw := strings.TrimSpace(strings.TrimPrefix(line, progressPrefix))
			percent, err := strconv.Atoi(raw)
			if err != nil || percent < 0 || percent > 100 {
				log.Debug("malformed progress line", logging.String("line", line))
				continue
			}
			if events.Progress != nil {
				events.Progress(percent)
			}
		case strings.HasPrefix(line, infoPrefix):
			message := strings.TrimSpace(strings.TrimPrefix(line, infoPrefix))
			log.Info(message)
			if events.Info != nil {
				events.Info(message)
			}
		default:
			log.Info(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stdout scan failed", logging.Error(err))
	}
}

func scanStderr(r io.Reader, events Events, log *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, errorPrefix) {
			message := strings.TrimSpace(strings.TrimPrefix(line, errorPrefix))
			log.Error(message)
			if events.Fault != nil {
				events.Fault(message)
			}
			continue
		}
		log.Error(line)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stderr scan failed", logging.Error(err))
	}
}

// Signal delivers an OS signal to the worker process. A signal to an
// already-exited process is a no-op.
func (h *Handle) Signal(sig os.Signal) error {
	if h.Exited() {
		return nil
	}
	return h.cmd.Process.Signal(sig)
}

// Kill force-terminates the worker.
func (h *Handle) Kill() error {
	if h.Exited() {
		return nil
	}
	return h.cmd.Process.Kill()
}

// Exited reports whether process exit has been observed.
func (h *Handle) Exited() bool {
	return h.exited.Load()
}

// ExitCode returns the observed exit code. Valid only after Done is closed.
func (h *Handle) ExitCode() int {
	return int(h.exitCode.Load())
}

// Done is closed once the process has fully terminated and both output
// streams are drained.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// PID returns the worker process ID.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}
