package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snatch/internal/config"
)

const userAgent = "Snatch-Go/0.1.0"

// Service defines the notification surface exposed to the engine.
type Service interface {
	NotifyDownloadComplete(ctx context.Context, title, filePath string) error
	NotifyDownloadFailed(ctx context.Context, title, reason string) error
	NotifyQueueDrained(ctx context.Context, completed, failed int) error
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

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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

func (n *ntfyService) NotifyDownloadComplete(ctx context.Context, title, filePath string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Snatch - Download Complete",
		message: fmt.Sprintf("Finished: %s\nFile: %s", title, filePath),
		tags:    []string{"snatch", "download", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadFailed(ctx context.Context, title, reason string) error {
	title = strings.TrimSpace(title)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Snatch - Download Failed",
		message:  fmt.Sprintf("Failed: %s\nReason: %s", title, reason),
		tags:     []string{"snatch", "download", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, completed, failed int) error {
	data := payload{
		title:   "Snatch - Queue Drained",
		message: fmt.Sprintf("All downloads finished: %d completed, %d failed", completed, failed),
		tags:    []string{"snatch", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Snatch - Test",
		message: "Notifications are configured correctly",
		tags:    []string{"snatch", "test"},
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

func (noopService) NotifyDownloadComplete(context.Context, string, string) error { return nil }
func (noopService) NotifyDownloadFailed(context.Context, string, string) error   { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int) error           { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
