package store

import (
	"context"
	"time"

	"github.com/sells-group/invoice-intake/internal/model"
)

// DeliveryFilter specifies criteria for listing delivery attempts.
type DeliveryFilter struct {
	Sink   model.Sink           `json:"sink,omitempty"`
	Status model.DeliveryStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`

	// CreatedAfter, when set, keeps only attempts recorded at or after it.
	CreatedAfter time.Time `json:"created_after,omitempty"`
}

// Store persists the delivery log of sink attempts.
type Store interface {
	RecordDelivery(ctx context.Context, d *model.Delivery) error
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]model.Delivery, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
