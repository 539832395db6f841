// Package webhook delivers signed bulk job notifications.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// EventBulkCompleted is sent once a bulk job stops, whatever its outcome.
const EventBulkCompleted = "bulk.completed"

// SignatureHeader carries "sha256=<hex hmac of the body>".
const SignatureHeader = "X-Pagelens-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, jobID string, data any) *Event {
	return &Event{Type: typ, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier posts events to webhook URLs.
type Notifier struct {
	Secret string
	Client *http.Client

	// Delays are the waits before each attempt. Default: 0, 1s, 5s, 30s.
	Delays []time.Duration
}

// NewNotifier returns a Notifier signing with secret (unsigned if empty).
func NewNotifier(secret string) *Notifier {
	return &Notifier{
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
		Delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver sends one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, url string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pagelens-Webhook/1.0")
	if n.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.Secret, body))
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync retries in the background until one attempt succeeds or the
// delays run out. The returned channel is closed when it gives up or
// succeeds.
func (n *Notifier) DeliverAsync(url string, event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for attempt, delay := range n.Delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, url, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered", "url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed", "url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery exhausted all retries", "url", url, "event", event.Type, "job_id", event.JobID)
	}()
	return done
}
