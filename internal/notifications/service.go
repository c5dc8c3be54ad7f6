package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lapse/internal/config"
)

const userAgent = "Lapse-Go/0.1.0"

// Service defines the notification surface exposed to the session
// controller.
type Service interface {
	NotifyRecordingStarted(ctx context.Context, workspace string) error
	NotifyRecordingPaused(ctx context.Context) error
	NotifyRecordingResumed(ctx context.Context) error
	NotifyArtifactReady(ctx context.Context, title, path, codec string) error
	NotifyNoFrames(ctx context.Context) error
	NotifyWorkerFault(ctx context.Context, message string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRecordingStarted(ctx context.Context, workspace string) error {
	workspace = strings.TrimSpace(workspace)
	data := payload{
		title:   "Lapse - Recording Started",
		message: fmt.Sprintf("🎥 Recording started: %s", workspace),
		tags:    []string{"lapse", "recording", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingPaused(ctx context.Context) error {
	data := payload{
		title:   "Lapse - Paused",
		message: "⏸️ Recording paused",
		tags:    []string{"lapse", "recording", "paused"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingResumed(ctx context.Context) error {
	data := payload{
		title:   "Lapse - Resumed",
		message: "▶️ Recording resumed",
		tags:    []string{"lapse", "recording", "resumed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyArtifactReady(ctx context.Context, title, path, codec string) error {
	title = strings.TrimSpace(title)
	path = strings.TrimSpace(path)
	message := fmt.Sprintf("✅ Timelapse ready: %s", title)
	if path != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, path)
	}
	if codec = strings.TrimSpace(codec); codec != "" {
		message = fmt.Sprintf("%s\nCodec: %s", message, codec)
	}
	data := payload{
		title:    "Lapse - Complete",
		message:  message,
		tags:     []string{"lapse", "finalize", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNoFrames(ctx context.Context) error {
	data := payload{
		title:   "Lapse - No Frames",
		message: "Recording ended without any captured frames, no video was produced",
		tags:    []string{"lapse", "finalize", "empty"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkerFault(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown"
	}
	data := payload{
		title:    "Lapse - Capture Warning",
		message:  fmt.Sprintf("⚠️ Capture worker reported: %s", message),
		tags:     []string{"lapse", "worker", "warning"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Lapse - Error",
		message:  builder.String(),
		tags:     []string{"lapse", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lapse - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"lapse", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRecordingStarted(context.Context, string) error              { return nil }
func (noopService) NotifyRecordingPaused(context.Context) error                       { return nil }
func (noopService) NotifyRecordingResumed(context.Context) error                      { return nil }
func (noopService) NotifyArtifactReady(context.Context, string, string, string) error { return nil }
func (noopService) NotifyNoFrames(context.Context) error                              { return nil }
func (noopService) NotifyWorkerFault(context.Context, string) error                   { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
