// Package monitoring watches the delivery log and alerts when an integration
// sink keeps failing.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/internal/resilience"
	"github.com/sells-group/invoice-intake/internal/store"
)

// collectLimit caps how many attempts one snapshot reads.
const collectLimit = 10000

// SinkStats summarizes the attempts against one sink.
type SinkStats struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Skipped       int     `json:"skipped"`
	Transient     int     `json:"transient"`
	Permanent     int     `json:"permanent"`
	FailRate      float64 `json:"fail_rate"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
}

// MetricsSnapshot holds a point-in-time view of delivery health.
type MetricsSnapshot struct {
	Sinks map[model.Sink]*SinkStats `json:"sinks"`
	Total int                       `json:"total"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the delivery log.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot of delivery metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		Sinks:         map[model.Sink]*SinkStats{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	deliveries, err := c.store.ListDeliveries(ctx, store.DeliveryFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        collectLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list deliveries")
	}

	durations := map[model.Sink]int64{}
	for _, d := range deliveries {
		st, ok := snap.Sinks[d.Sink]
		if !ok {
			st = &SinkStats{}
			snap.Sinks[d.Sink] = st
		}
		st.Total++
		snap.Total++
		durations[d.Sink] += d.DurationMs

		switch d.Status {
		case model.DeliverySucceeded:
			st.Succeeded++
		case model.DeliveryFailed:
			st.Failed++
			if d.ErrorType == resilience.ErrorTypeTransient {
				st.Transient++
			} else {
				st.Permanent++
			}
		case model.DeliverySkipped:
			st.Skipped++
		}
	}

	for sink, st := range snap.Sinks {
		// Skipped attempts never reached the sink.
		attempted := st.Succeeded + st.Failed
		if attempted > 0 {
			st.FailRate = float64(st.Failed) / float64(attempted)
		}
		st.AvgDurationMs = durations[sink] / int64(st.Total)
	}

	return snap, nil
}
