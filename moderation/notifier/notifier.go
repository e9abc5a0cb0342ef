// Package notifier delivers human-facing notifications for pipeline events.
// Delivery is best-effort: the dispatcher retries a failing notifier up to
// three times with linear backoff, then logs and drops the notification.
// A notification failure never blocks or reverses the moderation action it
// describes.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventType enumerates the notification channels' event kinds.
type EventType string

const (
	EventFlag       EventType = "flag"
	EventReport     EventType = "report"
	EventEscalation EventType = "escalation"
	EventResolution EventType = "resolution"
	EventAppeal     EventType = "appeal"
)

// Notification is one outbound message.
type Notification struct {
	Type    EventType `json:"type"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
}

// Notifier sends a single notification. Implementations choose the channel
// (webhook, log, in-app); the pipeline treats them uniformly.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

const (
	maxAttempts = 3
	baseBackoff = 250 * time.Millisecond
)

// Dispatcher wraps a Notifier with the retry-then-drop policy.
type Dispatcher struct {
	Notifier Notifier
	Logger   *slog.Logger
	// OnDrop is called after retries are exhausted, with the terminal error.
	// Used by the engine to emit a NotificationFailed event.
	OnDrop func(n Notification, err error)

	// test seam; nil means time.Sleep
	sleep func(time.Duration)
}

// Dispatch sends with up to three attempts and linear backoff. The terminal
// failure is logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	sleep := d.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = d.Notifier.Notify(ctx, n)
		if err == nil {
			notificationCount.WithLabelValues(string(n.Type), "ok").Inc()
			return
		}
		if attempt < maxAttempts {
			sleep(time.Duration(attempt) * baseBackoff)
		}
	}
	notificationCount.WithLabelValues(string(n.Type), "dropped").Inc()
	d.Logger.Error("dropping notification after retries", "type", n.Type, "subject", n.Subject, "err", err)
	if d.OnDrop != nil {
		d.OnDrop(n, err)
	}
}

// SlogNotifier writes notifications to the structured log. Default channel
// when no webhook is configured.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (s *SlogNotifier) Notify(ctx context.Context, n Notification) error {
	s.Logger.Info("notification", "type", n.Type, "subject", n.Subject, "text", n.Text)
	return nil
}

// CaptureNotifier records notifications for tests.
type CaptureNotifier struct {
	lk   sync.Mutex
	Sent []Notification
	// Fail makes the next n Notify calls error (retry testing).
	Fail int
}

func (c *CaptureNotifier) Notify(ctx context.Context, n Notification) error {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.Fail > 0 {
		c.Fail--
		return fmt.Errorf("simulated notify failure")
	}
	c.Sent = append(c.Sent, n)
	return nil
}

func (c *CaptureNotifier) Notifications() []Notification {
	c.lk.Lock()
	defer c.lk.Unlock()
	out := make([]Notification, len(c.Sent))
	copy(out, c.Sent)
	return out
}
