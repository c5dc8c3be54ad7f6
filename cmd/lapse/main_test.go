package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lapse/internal/config"
	"lapse/internal/daemon"
	"lapse/internal/history"
	"lapse/internal/ipc"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/session"
	"lapse/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *history.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	notifier := notifications.NewService(cfg)
	controller := session.NewController(cfg, store, notifier, logging.NewNop())
	d, err := daemon.New(cfg, store, controller, notifier, logging.NewNop(), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
state_dir = %q

[worker]
interpreter = "/bin/sh"
script = %q
stop_grace_period = 1
escalation_wait = 1

[finalize]
ffmpeg_binary = %q
`, cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.Worker.Script, cfg.Finalize.FFmpegBinary)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func waitCLIIdle(t *testing.T, env *cliTestEnv) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if strings.Contains(out, "idle") {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("session never returned to idle")
}

func TestCLISessionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	workspace := t.TempDir()

	out, _, err := runCLI(t, []string{"start", "-w", workspace}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "Recording started") {
		t.Fatalf("unexpected start output: %q", out)
	}
	if !strings.Contains(out, workspace) {
		t.Fatalf("start output missing workspace: %q", out)
	}

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "recording") {
		t.Fatalf("status should show recording state: %q", out)
	}
	if !strings.Contains(out, workspace) {
		t.Fatalf("status missing workspace: %q", out)
	}

	out, _, err = runCLI(t, []string{"pause"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !strings.Contains(out, "Recording paused") {
		t.Fatalf("unexpected pause output: %q", out)
	}

	out, _, err = runCLI(t, []string{"resume"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !strings.Contains(out, "Recording resumed") {
		t.Fatalf("unexpected resume output: %q", out)
	}

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Recording stopping") {
		t.Fatalf("unexpected stop output: %q", out)
	}

	waitCLIIdle(t, env)

	out, _, err = runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("history missing completed entry: %q", out)
	}
	if !strings.Contains(out, filepath.Base(workspace)) {
		t.Fatalf("history missing workspace: %q", out)
	}
}

func TestCLIStopWithoutSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "no session to stop") {
		t.Fatalf("unexpected stop output: %q", out)
	}
}

func TestCLIResumeWithoutPause(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"resume"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !strings.Contains(out, "No paused recording to resume") {
		t.Fatalf("unexpected resume output: %q", out)
	}
}

func TestCLIHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No recorded sessions yet.") {
		t.Fatalf("unexpected history output: %q", out)
	}
}

func TestCLITestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Notification not sent") && !strings.Contains(out, "not configured") {
		t.Fatalf("unexpected test-notify output: %q", out)
	}
}

func TestCLIDialErrorMentionsDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missingSocket := filepath.Join(t.TempDir(), "missing.sock")

	_, _, err := runCLI(t, []string{"status"}, missingSocket, env.configPath)
	if err == nil {
		t.Fatal("expected dial error for missing socket")
	}
	if !strings.Contains(err.Error(), "lapse daemon run") {
		t.Fatalf("dial error should point at the daemon command: %v", err)
	}
}
