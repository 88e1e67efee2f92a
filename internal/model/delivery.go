package model

import "time"

// Sink names a downstream integration target.
type Sink string

const (
	SinkHubSpot Sink = "hubspot"
	SinkWebhook Sink = "webhook"
)

// DeliveryStatus is the outcome of one sink attempt.
type DeliveryStatus string

const (
	DeliverySucceeded DeliveryStatus = "succeeded"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySkipped   DeliveryStatus = "skipped"
)

// Delivery records a single attempt to push an invoice to a sink.
type Delivery struct {
	ID            string         `json:"id"`
	Sink          Sink           `json:"sink"`
	Status        DeliveryStatus `json:"status"`
	Target        string         `json:"target,omitempty"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	VendorName    string         `json:"vendor_name,omitempty"`
	StatusCode    int            `json:"status_code,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorType     string         `json:"error_type,omitempty"` // "transient" or "permanent"
	DurationMs    int64          `json:"duration_ms"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Succeeded reports whether the delivery reached its sink.
func (d Delivery) Succeeded() bool {
	return d.Status == DeliverySucceeded
}
