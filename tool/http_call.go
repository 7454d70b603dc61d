package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// HTTPCall performs a generic HTTP request.
//
// Input:
//
//	url     (required) target URL
//	method  optional, defaults to GET
//	headers optional map of header name → value
//	body    optional request body; maps and slices are JSON-encoded
//
// Output: map with "status" (int), "body" (JSON-decoded when possible,
// raw string otherwise) and "headers".
//
// Non-2xx responses are errors so the dispatcher's retry/backoff applies.
type HTTPCall struct {
	client *http.Client
}

// HTTPCallOptions configures the HTTPCall tool.
type HTTPCallOptions struct {
	// Client defaults to an http.Client with a 30s overall timeout. The
	// dispatcher's per-task timeout still applies on top.
	Client *http.Client
}

// NewHTTPCall constructs the http-call tool.
func NewHTTPCall(optFns ...func(o *HTTPCallOptions)) *HTTPCall {
	opts := HTTPCallOptions{Client: &http.Client{Timeout: 30 * time.Second}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &HTTPCall{client: opts.Client}
}

// Kind returns core.ToolKindHTTPCall.
func (t *HTTPCall) Kind() core.ToolKind { return core.ToolKindHTTPCall }

// Description returns the tool summary.
func (t *HTTPCall) Description() string {
	return "Perform an HTTP request and return status, headers and decoded body"
}

// Execute runs the request.
func (t *HTTPCall) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	url, err := stringInput(t.Kind(), input, "url")
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	var body io.Reader
	contentType := ""
	if raw, ok := input["body"]; ok && raw != nil {
		switch v := raw.(type) {
		case string:
			body = strings.NewReader(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, NewToolError(t.Kind(), fmt.Sprintf("encode body: %v", err), "VALIDATION_ERROR")
			}
			body = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, NewToolError(t.Kind(), fmt.Sprintf("build request: %v", err), "VALIDATION_ERROR")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if headers, ok := input["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	execCtx.Logger().Debug("tool.http_call", "method", method, "url", url, "correlation_id", execCtx.CorrelationID())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http request returned status %d: %s", resp.StatusCode, truncate(string(raw), 256))
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"body":    decodeBody(raw),
		"headers": flattenHeaders(resp.Header),
	}, nil
}

// decodeBody attempts a JSON decode, falling back to the raw string.
func decodeBody(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}
	return string(raw)
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
