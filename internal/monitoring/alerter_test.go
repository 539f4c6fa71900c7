package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.25,
		MinCompleteness:      30,
	})

	snap := &MetricsSnapshot{
		Total:           20,
		Completed:       18,
		Failed:          2,
		FailRate:        0.1,
		AvgCompleteness: 72,
		Providers: map[model.Provider]ProviderStats{
			model.ProviderApollo: {Dispatched: 20, WithData: 18},
		},
		LookbackHours: 24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	snap := &MetricsSnapshot{
		Total:           10,
		Completed:       6,
		Failed:          4,
		FailRate:        0.4,
		AvgCompleteness: 50,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "4 failed / 10 attempted")
}

func TestAlerter_Evaluate_MinimumAttemptsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.1, MinCompleteness: 50})

	// Skipped attempts do not count toward the sample.
	snap := &MetricsSnapshot{
		Total:         10,
		Skipped:       7,
		Failed:        2,
		FailRate:      0.666,
		LookbackHours: 24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_StorageFailure(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1})

	alerts := a.Evaluate(&MetricsSnapshot{Total: 1, StorageFailed: 1, LookbackHours: 6})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStorageFailure, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "1 enrichment record(s)")
}

func TestAlerter_Evaluate_LowCompleteness(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1, MinCompleteness: 30})

	alerts := a.Evaluate(&MetricsSnapshot{Total: 8, Partial: 8, AvgCompleteness: 12.5, LookbackHours: 24})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowCompleteness, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "12.5")

	disabled := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1})
	assert.Empty(t, disabled.Evaluate(&MetricsSnapshot{Total: 8, AvgCompleteness: 0}))
}

func TestAlerter_Evaluate_ProviderNoData(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1})

	snap := &MetricsSnapshot{
		Total: 6,
		Providers: map[model.Provider]ProviderStats{
			model.ProviderLinkedIn: {Dispatched: 6, Errored: 6},
			model.ProviderApollo:   {Dispatched: 6, WithData: 1},
		},
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertProviderNoData, alerts[0].Type)
	assert.Equal(t, "linkedin", alerts[0].Details["provider"])
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.1, MinCompleteness: 50})

	snap := &MetricsSnapshot{
		Total:           10,
		Failed:          5,
		FailRate:        0.5,
		StorageFailed:   2,
		AvgCompleteness: 20,
		LookbackHours:   24,
	}

	types := make(map[AlertType]bool)
	for _, a := range a.Evaluate(snap) {
		types[a.Type] = true
	}
	assert.Len(t, types, 3)
	assert.True(t, types[AlertFailureRate])
	assert.True(t, types[AlertStorageFailure])
	assert.True(t, types[AlertLowCompleteness])
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertStorageFailure, Severity: "high", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
