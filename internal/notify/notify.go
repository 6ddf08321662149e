package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Notifier delivers best-effort plain text notifications for change
// events and operational anomalies. Delivery failures are logged and
// swallowed, never propagated.
type Notifier interface {
	Send(ctx context.Context, message string)
}

// Noop discards every message.
type Noop struct{}

func (Noop) Send(context.Context, string) {}

// Discord posts messages to a webhook.
type Discord struct {
	httpClient *http.Client
	webhookURL string
}

// NewDiscord creates a webhook notifier. An empty URL yields Noop.
func NewDiscord(webhookURL string) Notifier {
	if webhookURL == "" {
		return Noop{}
	}
	return &Discord{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Send(ctx context.Context, message string) {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		log.Printf("notify: failed to marshal message: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("notify: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		log.Printf("notify: failed to deliver message: %v", err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		log.Printf("notify: webhook returned status %d", res.StatusCode)
	}
}
