package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lifelog/internal/config"
)

const userAgent = "lifelog/0.1.0"

// Service defines the notification surface exposed to the collectors. All
// sends are fire-and-forget: a failed delivery is the caller's to log, never
// to propagate.
type Service interface {
	NotifySessionComplete(ctx context.Context, hours int) error
	NotifyRescueComplete(ctx context.Context, saved int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds the configured notification fan-out: ntfy push when a
// topic is set, a desktop banner when enabled, a noop otherwise.
func NewService(cfg *config.Config) Service {
	var services []Service

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		services = append(services, &ntfyService{
			endpoint: topic,
			client:   &http.Client{Timeout: timeout},
		})
	}
	if cfg.Notifications.Desktop {
		services = append(services, newDesktopService())
	}

	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return multiService(services)
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func sessionCompletePayload(hours int) payload {
	return payload{
		title:    "lifelog - Session Complete",
		message:  fmt.Sprintf("%d hour observation session finished.", hours),
		tags:     []string{"lifelog", "tracker", "completed"},
		priority: "high",
	}
}

func rescueCompletePayload(saved int) payload {
	return payload{
		title:   "lifelog - Rescue Complete",
		message: fmt.Sprintf("Backfill recovered %d tracks.", saved),
		tags:    []string{"lifelog", "rescue", "completed"},
	}
}

func errorPayload(err error, contextLabel string) payload {
	var builder strings.Builder
	builder.WriteString("Error")
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
	return payload{
		title:    "lifelog - Error",
		message:  builder.String(),
		tags:     []string{"lifelog", "error", "alert"},
		priority: "high",
	}
}

func testPayload() payload {
	return payload{
		title:    "lifelog - Test",
		message:  "Notification system test",
		tags:     []string{"lifelog", "test"},
		priority: "low",
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionComplete(ctx context.Context, hours int) error {
	return n.send(ctx, sessionCompletePayload(hours))
}

func (n *ntfyService) NotifyRescueComplete(ctx context.Context, saved int) error {
	return n.send(ctx, rescueCompletePayload(saved))
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	return n.send(ctx, errorPayload(err, contextLabel))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, testPayload())
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

type multiService []Service

func (m multiService) NotifySessionComplete(ctx context.Context, hours int) error {
	return m.each(func(s Service) error { return s.NotifySessionComplete(ctx, hours) })
}

func (m multiService) NotifyRescueComplete(ctx context.Context, saved int) error {
	return m.each(func(s Service) error { return s.NotifyRescueComplete(ctx, saved) })
}

func (m multiService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	return m.each(func(s Service) error { return s.NotifyError(ctx, err, contextLabel) })
}

func (m multiService) TestNotification(ctx context.Context) error {
	return m.each(func(s Service) error { return s.TestNotification(ctx) })
}

func (m multiService) each(fn func(Service) error) error {
	var firstErr error
	for _, s := range m {
		if err := fn(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type noopService struct{}

func (noopService) NotifySessionComplete(context.Context, int) error { return nil }
func (noopService) NotifyRescueComplete(context.Context, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
