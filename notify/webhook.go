package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// WebhookNotifier POSTs notifications as JSON to a configured endpoint,
// typically a chat integration or incident webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookNotifierOptions configures a WebhookNotifier.
type WebhookNotifierOptions struct {
	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client
}

// NewWebhookNotifier constructs a WebhookNotifier for the given endpoint.
func NewWebhookNotifier(url string, optFns ...func(o *WebhookNotifierOptions)) *WebhookNotifier {
	opts := WebhookNotifierOptions{Client: &http.Client{Timeout: 10 * time.Second}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WebhookNotifier{url: url, client: opts.Client}
}

// Deliver posts the notification.
func (n *WebhookNotifier) Deliver(ctx context.Context, notification core.Notification) error {
	encoded, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ core.Notifier = (*WebhookNotifier)(nil)
