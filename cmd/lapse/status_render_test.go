package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"lapse/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderStatusIdleWithLastArtifact(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running: true,
		PID:     1234,
		Session: ipc.SessionStatus{
			State:        "idle",
			LastArtifact: "/videos/demo.mp4",
			LastCodec:    "h265",
		},
	}
	lines := renderStatus(resp, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "pid 1234") {
		t.Fatalf("expected daemon pid in output: %q", joined)
	}
	if !strings.Contains(joined, "/videos/demo.mp4 (h265)") {
		t.Fatalf("expected last artifact with codec: %q", joined)
	}
}

func TestRenderStatusRecording(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running: true,
		Session: ipc.SessionStatus{
			State:      "recording",
			Workspace:  "/home/dev/project",
			StartedAt:  time.Now().Add(-90 * time.Second),
			FrameCount: 42,
		},
	}
	lines := renderStatus(resp, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "/home/dev/project") {
		t.Fatalf("expected workspace in output: %q", joined)
	}
	if !strings.Contains(joined, "42") {
		t.Fatalf("expected frame count in output: %q", joined)
	}
}

func TestRenderStatusDependencies(t *testing.T) {
	resp := &ipc.StatusResponse{
		Session: ipc.SessionStatus{State: "idle"},
		Dependencies: []ipc.DependencyStatus{
			{Name: "ffmpeg", Command: "ffmpeg", Available: true},
			{Name: "ntfy", Command: "", Available: false, Optional: true, Detail: "topic not configured"},
		},
	}
	lines := renderStatus(resp, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "[OK] ffmpeg") {
		t.Fatalf("expected available dependency: %q", joined)
	}
	if !strings.Contains(joined, "[WARN] topic not configured") {
		t.Fatalf("expected optional missing dependency as warning: %q", joined)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{-time.Second, "0s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
