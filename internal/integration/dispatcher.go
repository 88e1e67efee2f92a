package integration

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/internal/resilience"
	"github.com/sells-group/invoice-intake/internal/store"
)

// Report holds the outcome of each sink that was active for a dispatch.
// A nil entry means the sink was disabled in the settings.
type Report struct {
	HubSpot *model.Delivery `json:"hubspot,omitempty"`
	Webhook *model.Delivery `json:"webhook,omitempty"`
}

// Deliveries returns the non-nil outcomes.
func (r Report) Deliveries() []model.Delivery {
	var out []model.Delivery
	if r.HubSpot != nil {
		out = append(out, *r.HubSpot)
	}
	if r.Webhook != nil {
		out = append(out, *r.Webhook)
	}
	return out
}

// Dispatcher reads the integration settings and runs the active sinks.
type Dispatcher struct {
	settings *ConfigStore
	crm      *CRMSink
	webhook  *WebhookSink
	log      store.Store
	timeout  time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDeliveryLog records every sink attempt in st.
func WithDeliveryLog(st store.Store) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = st
	}
}

// WithSinkTimeout bounds each sink call. Defaults to 30s.
func WithSinkTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(settings *ConfigStore, crm *CRMSink, webhook *WebhookSink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		crm:      crm,
		webhook:  webhook,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	if d.webhook == nil {
		d.webhook = NewWebhookSink(d.timeout)
	}
	return d
}

// Dispatch sends inv to every enabled sink and waits for them. The settings
// are re-read on every call. Sinks run concurrently and independently: a
// failure or panic in one is recorded in its Delivery and does not affect
// the other. Sink calls are detached from ctx cancellation so a client
// disconnect does not abort them; each is bounded by the sink timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *model.Invoice) Report {
	settings := d.settings.Load()
	ctx = context.WithoutCancel(ctx)

	var (
		report Report
		g      errgroup.Group
	)

	if settings.HubSpotEnabled {
		g.Go(func() error {
			report.HubSpot = d.run(ctx, model.SinkHubSpot, "crm/v3/objects/companies", inv, d.sendCRM)
			return nil
		})
	}
	if settings.WebhookActive() {
		url := settings.WebhookURL
		g.Go(func() error {
			report.Webhook = d.run(ctx, model.SinkWebhook, url, inv, func(ctx context.Context, inv *model.Invoice) (model.DeliveryStatus, error) {
				if err := d.webhook.Send(ctx, url, inv); err != nil {
					return model.DeliveryFailed, err
				}
				return model.DeliverySucceeded, nil
			})
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (d *Dispatcher) sendCRM(ctx context.Context, inv *model.Invoice) (model.DeliveryStatus, error) {
	if !d.crm.Configured() {
		zap.L().Warn("integration: HUBSPOT_API_KEY not configured, skipping CRM delivery")
		return model.DeliverySkipped, nil
	}
	id, err := d.crm.Send(ctx, inv)
	if err != nil {
		return model.DeliveryFailed, err
	}
	zap.L().Debug("integration: CRM company created", zap.String("id", id))
	return model.DeliverySucceeded, nil
}

type sendFunc func(ctx context.Context, inv *model.Invoice) (model.DeliveryStatus, error)

// run executes one sink under its own timeout, converting panics into
// failures, then logs and records the outcome.
func (d *Dispatcher) run(ctx context.Context, sink model.Sink, target string, inv *model.Invoice, send sendFunc) *model.Delivery {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	status, err := safeSend(sendCtx, inv, send)

	del := &model.Delivery{
		Sink:       sink,
		Status:     status,
		Target:     target,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if inv != nil {
		del.InvoiceNumber = inv.InvoiceNumber
		del.VendorName = inv.VendorName
	}

	fields := []zap.Field{
		zap.String("sink", string(sink)),
		zap.String("target", target),
		zap.String("invoice_number", del.InvoiceNumber),
		zap.Int64("duration_ms", del.DurationMs),
	}
	if err != nil {
		del.Status = model.DeliveryFailed
		del.Error = err.Error()
		del.ErrorType = resilience.ClassifyError(err)
		del.StatusCode = resilience.StatusCode(err)
		zap.L().Error("integration: delivery failed", append(fields,
			zap.String("error_type", del.ErrorType),
			zap.Int("status_code", del.StatusCode),
			zap.Error(err),
		)...)
	} else {
		zap.L().Info("integration: delivery "+string(status), fields...)
	}

	if d.log != nil {
		if rerr := d.log.RecordDelivery(ctx, del); rerr != nil {
			zap.L().Error("integration: record delivery", zap.String("sink", string(sink)), zap.Error(rerr))
		}
	}
	return del
}

func safeSend(ctx context.Context, inv *model.Invoice, send sendFunc) (status model.DeliveryStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = model.DeliveryFailed
			err = eris.Errorf("integration: sink panicked: %v", r)
		}
	}()
	return send(ctx, inv)
}
