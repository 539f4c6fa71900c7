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

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate     AlertType = "enrichment_failure_rate"
	AlertStorageFailure  AlertType = "storage_failure"
	AlertLowCompleteness AlertType = "low_completeness"
	AlertProviderNoData  AlertType = "provider_no_data"
)

// minAttempts is the sample size below which rate alerts stay quiet.
const minAttempts = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
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

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	attempted := snap.Attempted()

	if attempted >= minAttempts && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Enrichment failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d attempted in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, attempted, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"attempted":    attempted,
			},
			Timestamp: now,
		})
	}

	if snap.StorageFailed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStorageFailure,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d enrichment record(s) could not be written in last %dh",
				snap.StorageFailed, snap.LookbackHours,
			),
			Details: map[string]any{
				"storage_failed": snap.StorageFailed,
				"attempted":      attempted,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MinCompleteness > 0 && attempted >= minAttempts && snap.AvgCompleteness < float64(a.cfg.MinCompleteness) {
		alerts = append(alerts, Alert{
			Type:     AlertLowCompleteness,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Average completeness %.1f is below %d over %d attempts in last %dh",
				snap.AvgCompleteness, a.cfg.MinCompleteness, attempted, snap.LookbackHours,
			),
			Details: map[string]any{
				"avg_completeness": snap.AvgCompleteness,
				"threshold":        a.cfg.MinCompleteness,
			},
			Timestamp: now,
		})
	}

	ids := make([]model.Provider, 0, len(snap.Providers))
	for id := range snap.Providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		ps := snap.Providers[id]
		if ps.Dispatched < minAttempts || ps.WithData > 0 {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertProviderNoData,
			Severity: "high",
			Message: fmt.Sprintf(
				"Provider %s returned no data for %d job(s) in last %dh",
				id, ps.Dispatched, snap.LookbackHours,
			),
			Details: map[string]any{
				"provider":   string(id),
				"dispatched": ps.Dispatched,
				"errored":    ps.Errored,
			},
			Timestamp: now,
		})
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
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
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
