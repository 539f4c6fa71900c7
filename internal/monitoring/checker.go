package monitoring

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Checker periodically collects attempt health and sends alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect attempt metrics", zap.Error(err))
		return
	}
	log.Debug("monitoring: snapshot",
		zap.Int("attempted", snap.Attempted()),
		zap.Int("skipped", snap.Skipped),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Float64("avg_completeness", snap.AvgCompleteness),
	)
	for _, id := range providersWithoutData(snap) {
		ps := snap.Providers[id]
		if ps.Dispatched >= minAttempts {
			continue // raised as an alert below
		}
		log.Warn("monitoring: provider returned no data, too few jobs to alert",
			zap.String("provider", string(id)),
			zap.Int("dispatched", ps.Dispatched),
			zap.Int("errored", ps.Errored),
		)
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}

	for _, a := range alerts {
		log.Info("monitoring: alert triggered",
			zap.String("type", string(a.Type)),
			zap.String("message", a.Message),
		)
	}
	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}

// providersWithoutData lists providers that were dispatched in the window but
// never produced data, in a stable order.
func providersWithoutData(snap *MetricsSnapshot) []model.Provider {
	var ids []model.Provider
	for id, ps := range snap.Providers {
		if ps.Dispatched > 0 && ps.WithData == 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
