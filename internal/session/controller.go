package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"lapse/internal/config"
	"lapse/internal/control"
	"lapse/internal/deps"
	"lapse/internal/finalize"
	"lapse/internal/framestore"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/services"
	"lapse/internal/worker"
)

// Controller runs at most one recording session at a time.
type Controller struct {
	cfg      *config.Config
	store    *history.Store
	notifier notifications.Service
	logger   *slog.Logger

	mu           sync.Mutex
	state        State
	current      *activeSession
	lastArtifact *finalize.Artifact
	lastErr      error
}

// NewController wires the session lifecycle against its collaborators.
// store may be nil when history persistence is disabled.
func NewController(cfg *config.Config, store *history.Store, notifier notifications.Service, logger *slog.Logger) *Controller {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Controller{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "session"),
		state:    StateIdle,
	}
}

// Start launches a recording session for the given workspace. It returns
// the session ID once the worker is running; capture continues in the
// background.
func (c *Controller) Start(ctx context.Context, workspace string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return "", services.Wrap(services.ErrAlreadyRunning, "session", "start",
			fmt.Sprintf("session already active in state %s", c.state), nil)
	}

	info, err := os.Stat(workspace)
	if err != nil || !info.IsDir() {
		return "", services.Wrap(services.ErrInvalidConfig, "session", "start",
			fmt.Sprintf("workspace %q is not a directory", workspace), err)
	}

	snapshot := c.cfg.Clone()
	if err := snapshot.Validate(); err != nil {
		return "", services.Wrap(services.ErrInvalidConfig, "session", "start", "validate config", err)
	}

	outputDir := snapshot.OutputDirFor(workspace)
	frames := framestore.New(outputDir)
	if err := frames.Ensure(); err != nil {
		return "", services.Wrap(services.ErrInvalidConfig, "session", "start",
			fmt.Sprintf("create output directory %s", outputDir), err)
	}

	if free, diskErr := deps.CheckDiskSpace(outputDir); diskErr != nil {
		c.logger.Warn("low disk space for recording",
			logging.String("output_dir", outputDir),
			logging.Int64("free_bytes", int64(free)),
			logging.Error(diskErr),
		)
	}

	channel := control.New(snapshot.Control.Strategy, frames.Dir())
	if err := channel.Reset(); err != nil {
		return "", services.Wrap(services.ErrInvalidConfig, "session", "start", "clear stale control markers", err)
	}

	sess := &activeSession{
		id:        uuid.NewString(),
		workspace: workspace,
		startedAt: time.Now(),
		cfg:       snapshot,
		channel:   channel,
		frames:    frames,
		done:      make(chan struct{}),
	}

	c.state = StateStarting

	opts := worker.Options{
		Interpreter:  snapshot.Worker.Interpreter,
		Script:       snapshot.Worker.Script,
		OutputDir:    outputDir,
		FrameRate:    snapshot.WorkerFrameRate(),
		VideoFPS:     snapshot.Recording.VideoFPS,
		Quality:      snapshot.Recording.Quality,
		CaptureArea:  snapshot.Recording.CaptureArea,
		MultiMonitor: snapshot.Recording.MultiMonitor,
		Codec:        snapshot.Recording.VideoCodec,
	}
	events := worker.Events{
		Progress: func(percent int) {
			sess.progress.Store(int32(percent))
		},
		Fault: func(message string) {
			go func() {
				if err := c.notifier.NotifyWorkerFault(context.Background(), message); err != nil {
					c.logger.Warn("worker fault notification failed", logging.Error(err))
				}
			}()
		},
		Exit: func(code int) {
			c.onWorkerExit(sess, code)
		},
	}

	// The spawn context must not carry the caller's cancelation: the daemon's
	// signal context would hard-kill the worker mid frame on shutdown, before
	// Stop's marker-then-escalation sequence gets a chance to run.
	handle, err := worker.Start(context.WithoutCancel(ctx), opts, events, c.logger)
	if err != nil {
		c.state = StateIdle
		return "", err
	}
	sess.handle = handle
	channel.Attach(handle)

	c.current = sess
	c.state = StateRecording
	c.lastErr = nil

	c.logger.Info("session started",
		logging.String(logging.FieldSessionID, sess.id),
		logging.String("workspace", workspace),
		logging.String("output_dir", outputDir),
	)

	if c.store != nil {
		if _, err := c.store.Begin(ctx, sess.id, workspace, sess.startedAt); err != nil {
			c.logger.Warn("history begin failed", logging.Error(err))
		}
	}
	go func() {
		if err := c.notifier.NotifyRecordingStarted(context.Background(), workspace); err != nil {
			c.logger.Warn("start notification failed", logging.Error(err))
		}
	}()

	return sess.id, nil
}

// TogglePause flips between Recording and Paused. It reports the new
// paused state.
func (c *Controller) TogglePause(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRecording:
		if err := c.current.channel.Raise(control.SignalPause); err != nil {
			return false, services.Wrap(services.ErrExternalTool, "session", "pause", "raise pause signal", err)
		}
		c.state = StatePaused
		c.logger.Info("session paused", logging.String(logging.FieldSessionID, c.current.id))
		go func() {
			if err := c.notifier.NotifyRecordingPaused(context.Background()); err != nil {
				c.logger.Warn("pause notification failed", logging.Error(err))
			}
		}()
		return true, nil
	case StatePaused:
		if err := c.current.channel.Clear(control.SignalPause); err != nil {
			return false, services.Wrap(services.ErrExternalTool, "session", "resume", "clear pause signal", err)
		}
		c.state = StateRecording
		c.logger.Info("session resumed", logging.String(logging.FieldSessionID, c.current.id))
		go func() {
			if err := c.notifier.NotifyRecordingResumed(context.Background()); err != nil {
				c.logger.Warn("resume notification failed", logging.Error(err))
			}
		}()
		return false, nil
	default:
		return false, services.Wrap(services.ErrNoActiveSession, "session", "pause",
			fmt.Sprintf("no pausable session in state %s", c.state), nil)
	}
}

// Stop requests the session end. It returns once the stop signal is
// raised; worker shutdown and finalization continue in the background.
// Stopping an already-stopping session is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRecording, StatePaused:
	case StateStopping, StateFinalizing:
		return nil
	default:
		return services.Wrap(services.ErrNoActiveSession, "session", "stop", "no session to stop", nil)
	}

	sess := c.current
	sess.stopRequested.Store(true)
	if err := sess.channel.Raise(control.SignalStop); err != nil {
		return services.Wrap(services.ErrExternalTool, "session", "stop", "raise stop signal", err)
	}
	c.state = StateStopping
	c.logger.Info("session stopping", logging.String(logging.FieldSessionID, sess.id))

	grace := time.Duration(sess.cfg.Worker.StopGraceSecs) * time.Second
	wait := time.Duration(sess.cfg.Worker.EscalationSecs) * time.Second
	go func() {
		if err := worker.Terminate(context.Background(), sess.handle, grace, wait, c.logger); err != nil {
			// Escalation exhaustion is logged but not fatal; the exit
			// handler still owns the terminal outcome.
			c.logger.Error("worker termination failed", logging.String(logging.FieldSessionID, sess.id), logging.Error(err))
		}
	}()
	return nil
}

// onWorkerExit is the single funnel from "process ended" to "session
// resolved". It runs at most once per session.
func (c *Controller) onWorkerExit(sess *activeSession, code int) {
	sess.finalizeOnce.Do(func() {
		defer close(sess.done)

		c.mu.Lock()
		c.state = StateFinalizing
		c.mu.Unlock()

		c.logger.Info("worker exited, finalizing",
			logging.String(logging.FieldSessionID, sess.id),
			logging.Int("exit_code", code),
		)

		frameCount, countErr := sess.frames.Count()
		if countErr != nil {
			c.logger.Warn("frame count failed", logging.Error(countErr))
		}

		finalizer := finalize.New(sess.cfg, c.logger)
		artifact, err := finalizer.Run(context.Background(), sess.workspace)

		outcome := outcomeFor(code, sess.stopRequested.Load(), err)
		c.notifyOutcome(artifact, outcome, err)
		c.recordOutcome(sess, artifact, outcome, frameCount, err)

		c.mu.Lock()
		c.state = StateIdle
		c.current = nil
		c.lastArtifact = artifact
		c.lastErr = err
		c.mu.Unlock()

		c.logger.Info("session resolved",
			logging.String(logging.FieldSessionID, sess.id),
			logging.String("outcome", string(outcome)),
		)
	})
}

func outcomeFor(code int, stopRequested bool, err error) history.Outcome {
	switch {
	case err == nil:
		return history.OutcomeCompleted
	case errors.Is(err, services.ErrNoFrames):
		if code != 0 && !stopRequested {
			return history.OutcomeFailed
		}
		return history.OutcomeNoFrames
	case errors.Is(err, services.ErrEncodeFailed):
		return history.OutcomeEncodeFailed
	case errors.Is(err, services.ErrTimeout):
		return history.OutcomeTimeout
	case stopRequested:
		return history.OutcomeStopped
	default:
		return history.OutcomeFailed
	}
}

func (c *Controller) notifyOutcome(artifact *finalize.Artifact, outcome history.Outcome, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var notifyErr error
	switch outcome {
	case history.OutcomeCompleted:
		notifyErr = c.notifier.NotifyArtifactReady(ctx, artifact.Title(), artifact.Path, artifact.Codec)
	case history.OutcomeNoFrames:
		notifyErr = c.notifier.NotifyNoFrames(ctx)
	default:
		notifyErr = c.notifier.NotifyError(ctx, err, "finalization")
	}
	if notifyErr != nil {
		c.logger.Warn("outcome notification failed", logging.Error(notifyErr))
	}
}

func (c *Controller) recordOutcome(sess *activeSession, artifact *finalize.Artifact, outcome history.Outcome, frameCount int, err error) {
	if c.store == nil {
		return
	}
	params := history.FinishParams{
		Outcome:    outcome,
		FrameCount: frameCount,
	}
	if artifact != nil {
		params.ArtifactPath = artifact.Path
		params.Codec = artifact.Codec
		params.FrameCount = artifact.Frames
	}
	if err != nil {
		params.ErrorMessage = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if finishErr := c.store.Finish(ctx, sess.id, time.Now(), params); finishErr != nil {
		c.logger.Warn("history finish failed", logging.Error(finishErr))
	}
}

// Status reports the controller's current snapshot.
func (c *Controller) Status(ctx context.Context) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{State: c.state}
	if c.lastArtifact != nil {
		status.LastArtifact = c.lastArtifact.Path
		status.LastCodec = c.lastArtifact.Codec
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	if c.current != nil {
		status.SessionID = c.current.id
		status.Workspace = c.current.workspace
		status.StartedAt = c.current.startedAt
		status.Progress = int(c.current.progress.Load())
		if count, err := c.current.frames.Count(); err == nil {
			status.FrameCount = count
		}
	}
	return status
}

// Shutdown stops any active session and waits for it to resolve, bounded
// by ctx.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	if err := c.Stop(ctx); err != nil && !errors.Is(err, services.ErrNoActiveSession) {
		return err
	}
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return services.Wrap(services.ErrTimeout, "session", "shutdown", "session did not resolve", ctx.Err())
	}
}
