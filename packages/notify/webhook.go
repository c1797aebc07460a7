package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts the digest as plain JSON to an arbitrary endpoint.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

type WebhookOption func(*Webhook)

// WithWebhookHeader adds a header to every delivery, e.g. an auth token.
func WithWebhookHeader(key, value string) WebhookOption {
	return func(w *Webhook) {
		w.headers[key] = value
	}
}

func WithWebhookTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.client.Timeout = d
	}
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:     url,
		headers: make(map[string]string),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Name() string {
	return "webhook"
}

type webhookPayload struct {
	Status     string   `json:"status"`
	Summary    *Summary `json:"summary"`
	DurationMs int64    `json:"duration_ms"`
	Time       string   `json:"time"`
}

func (w *Webhook) Notify(summary *Summary) error {
	status := "passed"
	if !summary.Ok() {
		status = "failed"
	}
	payload := webhookPayload{
		Status:     status,
		Summary:    summary,
		DurationMs: summary.Duration.Milliseconds(),
		Time:       time.Now().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
