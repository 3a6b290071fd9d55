package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Event is the JSON payload posted to the webhook.
type Event struct {
	Source  string    `json:"source"`
	Level   string    `json:"level"` // "info" or "error"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier reports cycle and retrain outcomes to an external channel.
type Notifier interface {
	Notify(ctx context.Context, level, source, message string) error
}

// WebhookNotifier POSTs events to a configured HTTP endpoint.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotifier creates a notifier for the given endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Notify sends one event, retrying with exponential backoff.
func (w *WebhookNotifier) Notify(ctx context.Context, level, source, message string) error {
	return w.sendWithRetry(ctx, Event{
		Source:  source,
		Level:   level,
		Message: message,
		At:      time.Now().UTC(),
	}, 3)
}

func (w *WebhookNotifier) send(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (w *WebhookNotifier) sendWithRetry(ctx context.Context, evt Event, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		lastErr = w.send(ctx, evt)
		if lastErr == nil {
			return nil
		}
		if i == maxRetries {
			break
		}
		wait := time.Duration(1<<uint(i)) * time.Second
		log.Printf("[WARN] webhook send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, lastErr, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("webhook send failed after %d attempts: %w", maxRetries+1, lastErr)
}

// NoopNotifier is used when no webhook URL is configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) Notify(_ context.Context, _, _, _ string) error { return nil }
