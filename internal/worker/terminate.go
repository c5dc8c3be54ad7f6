package worker

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"lapse/internal/logging"
	"lapse/internal/services"
)

// escalationStep is one rung of the shutdown ladder. A nil signal means
// wait without prodding the process.
type escalationStep struct {
	signal os.Signal
	name   string
	wait   time.Duration
}

// killConfirm bounds the wait after SIGKILL; a killed process that does
// not reap in this window indicates something is badly wrong.
const killConfirm = 2 * time.Second

func escalationPlan(grace, wait time.Duration) []escalationStep {
	return []escalationStep{
		{signal: nil, name: "grace", wait: grace},
		{signal: syscall.SIGTERM, name: "SIGTERM", wait: wait},
		{signal: syscall.SIGINT, name: "SIGINT", wait: wait},
		{signal: syscall.SIGKILL, name: "SIGKILL", wait: killConfirm},
	}
}

// Terminate waits for the worker to exit on its own and escalates through
// progressively harsher signals if it does not. It returns nil once exit
// is observed, ErrTimeout if ctx expires first, and ErrTermination if the
// process survives the full ladder including SIGKILL.
func Terminate(ctx context.Context, h *Handle, grace, wait time.Duration, logger *slog.Logger) error {
	log := logging.NewComponentLogger(logger, "worker")
	for _, step := range escalationPlan(grace, wait) {
		if h.Exited() {
			return nil
		}
		if step.signal != nil {
			log.Warn("worker still running, escalating",
				logging.String("signal", step.name),
				logging.Int("pid", h.PID()),
			)
			if err := h.Signal(step.signal); err != nil {
				// Signal delivery fails when the process reaped between
				// the Exited check and the kill(2); treat as exited.
				if h.Exited() {
					return nil
				}
				log.Warn("signal delivery failed",
					logging.String("signal", step.name),
					logging.Error(err),
				)
			}
		}
		timer := time.NewTimer(step.wait)
		select {
		case <-h.Done():
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return services.Wrap(services.ErrTimeout, "worker", "terminate", "shutdown canceled", ctx.Err())
		case <-timer.C:
		}
	}
	if h.Exited() {
		return nil
	}
	return services.Wrap(services.ErrTermination, "worker", "terminate",
		"worker survived SIGKILL", nil)
}
