package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"lapse/internal/logging"
	"lapse/internal/services"
)

func startWorker(t *testing.T, body string) *Handle {
	t.Helper()
	opts := Options{
		Interpreter: "/bin/sh",
		Script:      writeScript(t, body),
		OutputDir:   t.TempDir(),
		FrameRate:   1,
		VideoFPS:    30,
		Quality:     85,
	}
	h, err := Start(context.Background(), opts, Events{}, logging.NewNop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h
}

func TestTerminateExitsWithinGrace(t *testing.T) {
	h := startWorker(t, "sleep 0.1\nexit 0\n")
	if err := Terminate(context.Background(), h, 3*time.Second, time.Second, logging.NewNop()); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if !h.Exited() {
		t.Error("worker still running after Terminate")
	}
}

func TestTerminateEscalatesToSigterm(t *testing.T) {
	// A plain sleep dies to SIGTERM; grace is too short for it to finish
	// on its own.
	h := startWorker(t, "sleep 30\n")
	start := time.Now()
	if err := Terminate(context.Background(), h, 100*time.Millisecond, 2*time.Second, logging.NewNop()); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("termination took %v, expected SIGTERM to land quickly", elapsed)
	}
	if !h.Exited() {
		t.Error("worker still running after Terminate")
	}
}

func TestTerminateEscalatesToSigkill(t *testing.T) {
	// Traps make the shell shrug off the catchable signals, forcing the
	// ladder all the way to SIGKILL.
	h := startWorker(t, `
trap '' TERM INT
while true; do sleep 0.1; done
`)
	if err := Terminate(context.Background(), h, 100*time.Millisecond, 200*time.Millisecond, logging.NewNop()); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if !h.Exited() {
		t.Error("worker survived SIGKILL")
	}
}

func TestTerminateAlreadyExited(t *testing.T) {
	h := startWorker(t, "exit 0\n")
	waitDone(t, h)
	if err := Terminate(context.Background(), h, time.Second, time.Second, logging.NewNop()); err != nil {
		t.Fatalf("Terminate on exited worker: %v", err)
	}
}

func TestTerminateContextCanceled(t *testing.T) {
	h := startWorker(t, `
trap '' TERM INT
while true; do sleep 0.1; done
`)
	defer func() { _ = h.Kill() }()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := Terminate(ctx, h, 10*time.Second, 10*time.Second, logging.NewNop())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("Terminate error = %v, want ErrTimeout", err)
	}
}
