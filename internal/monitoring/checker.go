package monitoring

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/config"
	"github.com/sells-group/invoice-intake/internal/model"
)

// Checker reviews the delivery log on an interval and alerts when a sink
// looks unhealthy.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background delivery health checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// checkResult summarizes one pass over the delivery log.
type checkResult struct {
	Attempts  int
	Unhealthy []model.Sink
	Sent      int
}

// Run checks sink health every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: watching sink deliveries",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Float64("failure_rate_threshold", c.cfg.FailureRateThreshold),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: stopped watching sink deliveries")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) checkResult {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: read delivery log", zap.Error(err))
		return checkResult{}
	}

	res := checkResult{Attempts: snap.Total}
	if snap.Total == 0 {
		log.Debug("monitoring: no deliveries in window", zap.Int("lookback_hours", snap.LookbackHours))
		return res
	}

	sinks := make([]model.Sink, 0, len(snap.Sinks))
	for sink := range snap.Sinks {
		sinks = append(sinks, sink)
	}
	sort.Slice(sinks, func(i, j int) bool { return sinks[i] < sinks[j] })
	for _, sink := range sinks {
		st := snap.Sinks[sink]
		log.Debug("monitoring: sink health",
			zap.String("sink", string(sink)),
			zap.Int("attempts", st.Total),
			zap.Int("failed", st.Failed),
			zap.Int("permanent", st.Permanent),
			zap.Float64("fail_rate", st.FailRate),
		)
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: all sinks healthy", zap.Int("attempts", snap.Total))
		return res
	}

	seen := make(map[model.Sink]bool)
	names := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if !seen[a.Sink] {
			seen[a.Sink] = true
			res.Unhealthy = append(res.Unhealthy, a.Sink)
			names = append(names, string(a.Sink))
		}
	}

	res.Sent = c.alerter.SendAlerts(ctx, alerts)
	log.Warn("monitoring: unhealthy sinks",
		zap.Strings("sinks", names),
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", res.Sent),
	)
	return res
}
