package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/internal/resilience"
)

// WebhookSink posts the extracted invoice as JSON to a configured URL.
type WebhookSink struct {
	client *http.Client
}

// NewWebhookSink returns a webhook sink whose requests time out after
// timeout (30s when non-positive).
func NewWebhookSink(timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookSink{client: &http.Client{Timeout: timeout}}
}

// Send posts inv to url. Only 200 OK counts as delivered.
func (s *WebhookSink) Send(ctx context.Context, url string, inv *model.Invoice) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return eris.Wrap(err, "integration: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "integration: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "integration: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resilience.NewStatusError(resp.StatusCode, string(body))
	}
	return nil
}
