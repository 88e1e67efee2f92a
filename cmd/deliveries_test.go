package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/invoice-intake/internal/model"
)

func TestFormatDeliveries(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	list := []model.Delivery{
		{
			ID:            "abc12345-6789-0000-0000-000000000000",
			Sink:          model.SinkWebhook,
			Status:        model.DeliverySucceeded,
			InvoiceNumber: "INV-1",
			StatusCode:    200,
			CreatedAt:     now,
		},
		{
			ID:            "def12345-6789-0000-0000-000000000000",
			Sink:          model.SinkHubSpot,
			Status:        model.DeliveryFailed,
			InvoiceNumber: "INV-2",
			StatusCode:    429,
			Error:         "hubspot returned 429: rate limit exceeded for this portal, retry later",
			CreatedAt:     now,
		},
	}

	var buf bytes.Buffer
	formatDeliveries(&buf, list)

	out := buf.String()
	assert.Contains(t, out, "SINK")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "webhook")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "429")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "12345678", truncateID("1234567890"))
}
