package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"barscan/internal/config"
	"barscan/internal/events"
)

const userAgent = "barscan/0.1.0"

// Service defines the notification surface used by the daemon and CLI.
type Service interface {
	NotifyScanAccepted(ctx context.Context, value, product string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
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

func (n *ntfyService) NotifyScanAccepted(ctx context.Context, value, product string) error {
	value = strings.TrimSpace(value)
	message := "Scanned: " + value
	if product = strings.TrimSpace(product); product != "" {
		message = fmt.Sprintf("Scanned: %s (%s)", value, product)
	}
	return n.send(ctx, payload{
		title:   "barscan - Scan Accepted",
		message: message,
		tags:    []string{"barscan", "scan", "accepted"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
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
	return n.send(ctx, payload{
		title:    "barscan - Error",
		message:  builder.String(),
		tags:     []string{"barscan", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "barscan - Test",
		message:  "Notification system test",
		tags:     []string{"barscan", "test"},
		priority: "low",
	})
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

func (noopService) NotifyScanAccepted(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

// Publisher forwards completed scans to a Service in the background so a slow
// ntfy server never holds up the scan loop. Failures go to OnError.
type Publisher struct {
	svc          Service
	notifyErrors bool
	timeout      time.Duration
	OnError      func(error)

	wg sync.WaitGroup
}

// NewPublisher wraps svc. Failed attempts are only forwarded when notifyErrors
// is set.
func NewPublisher(svc Service, notifyErrors bool) *Publisher {
	return &Publisher{svc: svc, notifyErrors: notifyErrors, timeout: 15 * time.Second}
}

func (p *Publisher) Publish(ctx context.Context, _ string, event any) error {
	completed, ok := event.(events.ScanCompleted)
	if !ok {
		return nil
	}
	var send func(context.Context) error
	switch completed.Kind {
	case "accepted":
		send = func(ctx context.Context) error {
			return p.svc.NotifyScanAccepted(ctx, completed.Value, completed.Product)
		}
	case "error":
		if !p.notifyErrors {
			return nil
		}
		send = func(ctx context.Context) error {
			return p.svc.NotifyError(ctx, errors.New(completed.Error), "scan attempt")
		}
	default:
		return nil
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if err := send(sendCtx); err != nil && p.OnError != nil {
			p.OnError(err)
		}
	}()
	return nil
}

// Close waits for notifications still in flight.
func (p *Publisher) Close() error {
	p.wg.Wait()
	return nil
}
