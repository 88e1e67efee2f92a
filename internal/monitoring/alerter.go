package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/config"
	"github.com/sells-group/invoice-intake/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSinkFailureRate    AlertType = "sink_failure_rate"
	AlertSinkPermanentError AlertType = "sink_permanent_error"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Sink      model.Sink     `json:"sink"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts,
// ordered by sink name.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	minAttempts := a.cfg.MinAttempts
	if minAttempts <= 0 {
		minAttempts = 1
	}

	sinks := make([]model.Sink, 0, len(snap.Sinks))
	for sink := range snap.Sinks {
		sinks = append(sinks, sink)
	}
	sort.Slice(sinks, func(i, j int) bool { return sinks[i] < sinks[j] })

	for _, sink := range sinks {
		st := snap.Sinks[sink]
		attempted := st.Succeeded + st.Failed

		if attempted >= minAttempts && st.FailRate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertSinkFailureRate,
				Sink:     sink,
				Severity: "high",
				Message: fmt.Sprintf(
					"%s failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d attempted in last %dh)",
					sink, st.FailRate*100, a.cfg.FailureRateThreshold*100,
					st.Failed, attempted, snap.LookbackHours,
				),
				Details: map[string]any{
					"failure_rate": st.FailRate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       st.Failed,
					"attempted":    attempted,
				},
				Timestamp: now,
			})
		}

		// Permanent errors (bad credentials, rejected payloads) will not
		// clear on their own.
		if st.Permanent > 0 {
			alerts = append(alerts, Alert{
				Type:     AlertSinkPermanentError,
				Sink:     sink,
				Severity: "medium",
				Message: fmt.Sprintf(
					"%d permanent %s delivery error(s) in last %dh",
					st.Permanent, sink, snap.LookbackHours,
				),
				Details: map[string]any{
					"permanent": st.Permanent,
					"total":     st.Total,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("sink", string(alert.Sink)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("sink", string(alert.Sink)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
