package ipc_test

import (
	"context"
	"testing"
	"time"

	"lapse/internal/config"
	"lapse/internal/daemon"
	"lapse/internal/ipc"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/session"
	"lapse/internal/testsupport"
)

func startServer(t *testing.T) (*ipc.Client, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
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
	t.Cleanup(func() { d.Stop() })

	server, err := ipc.NewServer(context.Background(), cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, cfg
}

func waitIdle(t *testing.T, client *ipc.Client) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		status, err := client.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.Session.State == string(session.StateIdle) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("session never returned to idle")
}

func TestSessionRoundTrip(t *testing.T) {
	client, _ := startServer(t)
	workspace := t.TempDir()

	start, err := client.Start(workspace)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !start.Started {
		t.Fatalf("Start rejected: %s", start.Message)
	}
	if start.SessionID == "" {
		t.Fatal("no session id returned")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Error("daemon not running")
	}
	if status.Session.State != string(session.StateRecording) {
		t.Errorf("state = %q, want recording", status.Session.State)
	}
	if status.Session.Workspace != workspace {
		t.Errorf("workspace = %q, want %q", status.Session.Workspace, workspace)
	}

	pause, err := client.TogglePause()
	if err != nil {
		t.Fatalf("TogglePause: %v", err)
	}
	if !pause.Paused {
		t.Errorf("TogglePause message = %q, expected paused", pause.Message)
	}
	resume, err := client.TogglePause()
	if err != nil {
		t.Fatalf("TogglePause resume: %v", err)
	}
	if resume.Paused {
		t.Error("second toggle should resume")
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stop.Stopped {
		t.Fatalf("Stop rejected: %s", stop.Message)
	}
	waitIdle(t, client)

	hist, err := client.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(hist.Entries))
	}
	entry := hist.Entries[0]
	if entry.SessionID != start.SessionID {
		t.Errorf("history session id = %q, want %q", entry.SessionID, start.SessionID)
	}
	if entry.Outcome != "completed" {
		t.Errorf("outcome = %q, want completed, error %q", entry.Outcome, entry.ErrorMessage)
	}
	if entry.ArtifactPath == "" {
		t.Error("no artifact recorded")
	}
}

func TestStopWithoutSessionReturnsMessage(t *testing.T) {
	client, _ := startServer(t)

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stop.Stopped {
		t.Error("Stop succeeded with no active session")
	}
	if stop.Message == "" {
		t.Error("no explanation returned")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if resp.Sent {
		t.Error("notification sent without configured topic")
	}
}
