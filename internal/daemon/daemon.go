package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"lapse/internal/config"
	"lapse/internal/deps"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/session"
)

// Daemon coordinates the recording services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *history.Store
	controller *session.Controller
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Session       session.Status
	HistoryDBPath string
	LockFilePath  string
	SocketPath    string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, controller *session.Controller, notifier notifications.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || controller == nil {
		return nil, errors.New("daemon requires config, store, and controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		controller: controller,
		notifier:   notifier,
		logPath:    logPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lapse daemon instance is already running")
	}

	d.running.Store(true)
	d.logger.Info("lapse daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop resolves any active session and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := d.controller.Shutdown(ctx); err != nil {
		d.logger.Warn("session shutdown incomplete", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lapse daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartSession begins recording the given workspace.
func (d *Daemon) StartSession(ctx context.Context, workspace string) (string, error) {
	return d.controller.Start(ctx, workspace)
}

// TogglePause flips the active session between recording and paused.
func (d *Daemon) TogglePause(ctx context.Context) (bool, error) {
	return d.controller.TogglePause(ctx)
}

// StopSession asks the active session to end and finalize.
func (d *Daemon) StopSession(ctx context.Context) error {
	return d.controller.Stop(ctx)
}

// History lists past sessions, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]*history.Record, error) {
	if d.store == nil {
		return nil, errors.New("history store unavailable")
	}
	return d.store.List(ctx, limit)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Session:       d.controller.Status(ctx),
		HistoryDBPath: d.cfg.HistoryDBPath(),
		LockFilePath:  d.lockPath,
		SocketPath:    d.cfg.SocketPath(),
		Dependencies:  deps.CheckSystemDeps(d.cfg),
	}
}
