package main

import (
	"strings"
	"testing"
	"time"

	"lapse/internal/ipc"
)

func TestRenderHistoryTable(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	entries := []ipc.HistoryEntry{
		{
			SessionID:    "a",
			Workspace:    "/home/dev/office_desk",
			StartedAt:    started,
			FinishedAt:   &finished,
			Outcome:      "completed",
			FrameCount:   42,
			ArtifactPath: "/videos/office_desk1.mp4",
			Codec:        "h264",
		},
		{
			SessionID:    "b",
			Workspace:    "/home/dev/broken",
			StartedAt:    started,
			FinishedAt:   &finished,
			Outcome:      "failed",
			ErrorMessage: strings.Repeat("x", 60),
		},
	}

	out := renderHistoryTable(entries)
	for _, want := range []string{
		"Started", "Frames", "Duration",
		"office_desk", "completed", "42", "1m30s", "office_desk1.mp4 (h264)",
		"broken", "failed", "...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryRowInProgress(t *testing.T) {
	entry := ipc.HistoryEntry{
		Workspace:  "/tmp/demo",
		StartedAt:  time.Now(),
		FrameCount: 3,
	}
	row := historyRow(entry)
	if row[2] != "in progress" {
		t.Errorf("outcome cell = %q, want in progress", row[2])
	}
	if row[4] != "" {
		t.Errorf("duration cell = %q, want empty", row[4])
	}
}
