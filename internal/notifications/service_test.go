package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lapse/internal/config"
	"lapse/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyRecordingStarted(context.Background(), "/workspace"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func captureServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.title = r.Header.Get("Title")
		got.message = string(body)
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func newService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(cfg)
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectContains string
		expectTags     string
		expectPriority string
	}{
		{
			name: "recording started",
			send: func(svc notifications.Service) error {
				return svc.NotifyRecordingStarted(context.Background(), "/home/dev/project")
			},
			expectTitle:    "Lapse - Recording Started",
			expectContains: "/home/dev/project",
			expectTags:     "lapse,recording,started",
		},
		{
			name: "artifact ready",
			send: func(svc notifications.Service) error {
				return svc.NotifyArtifactReady(context.Background(), "Project", "/out/project1.mp4", "h265")
			},
			expectTitle:    "Lapse - Complete",
			expectContains: "/out/project1.mp4",
			expectTags:     "lapse,finalize,completed",
			expectPriority: "high",
		},
		{
			name: "no frames",
			send: func(svc notifications.Service) error {
				return svc.NotifyNoFrames(context.Background())
			},
			expectTitle:    "Lapse - No Frames",
			expectContains: "no video",
			expectTags:     "lapse,finalize,empty",
		},
		{
			name: "worker fault",
			send: func(svc notifications.Service) error {
				return svc.NotifyWorkerFault(context.Background(), "display lost")
			},
			expectTitle:    "Lapse - Capture Warning",
			expectContains: "display lost",
			expectTags:     "lapse,worker,warning",
			expectPriority: "high",
		},
		{
			name: "error with context",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("spawn failed"), "session start")
			},
			expectTitle:    "Lapse - Error",
			expectContains: "session start",
			expectTags:     "lapse,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			send: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Lapse - Test",
			expectContains: "test",
			expectTags:     "lapse,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := captureServer(t)
			svc := newService(t, server.URL)
			if err := tc.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Errorf("title = %q, want %q", got.title, tc.expectTitle)
			}
			if !strings.Contains(strings.ToLower(got.message), strings.ToLower(tc.expectContains)) {
				t.Errorf("message %q missing %q", got.message, tc.expectContains)
			}
			if got.tags != tc.expectTags {
				t.Errorf("tags = %q, want %q", got.tags, tc.expectTags)
			}
			if got.priority != tc.expectPriority {
				t.Errorf("priority = %q, want %q", got.priority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	svc := newService(t, server.URL)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error %q does not mention status code", err)
	}
}
