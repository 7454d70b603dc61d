package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// WebhookTrigger fires a webhook by POSTing a JSON payload.
//
// Input:
//
//	url     (required) webhook endpoint
//	payload optional JSON payload; defaults to {"plan_id": …, "triggered_at": …}
//
// Output: map with "status" and "delivered" = true.
type WebhookTrigger struct {
	client *http.Client
}

// NewWebhookTrigger constructs the webhook-trigger tool.
func NewWebhookTrigger(optFns ...func(o *HTTPCallOptions)) *WebhookTrigger {
	opts := HTTPCallOptions{Client: &http.Client{Timeout: 30 * time.Second}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WebhookTrigger{client: opts.Client}
}

// Kind returns core.ToolKindWebhookTrigger.
func (t *WebhookTrigger) Kind() core.ToolKind { return core.ToolKindWebhookTrigger }

// Description returns the tool summary.
func (t *WebhookTrigger) Description() string {
	return "POST a JSON payload to a webhook endpoint"
}

// Execute posts the payload.
func (t *WebhookTrigger) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	url, err := stringInput(t.Kind(), input, "url")
	if err != nil {
		return nil, err
	}

	payload, ok := input["payload"]
	if !ok {
		payload = map[string]any{
			"plan_id":      execCtx.PlanID(),
			"triggered_at": time.Now().UTC().Format(time.RFC3339),
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, NewToolError(t.Kind(), fmt.Sprintf("encode payload: %v", err), "VALIDATION_ERROR")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, NewToolError(t.Kind(), fmt.Sprintf("build request: %v", err), "VALIDATION_ERROR")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return map[string]any{"status": resp.StatusCode, "delivered": true}, nil
}
