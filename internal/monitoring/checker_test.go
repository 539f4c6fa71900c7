package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	st := &mockStore{}
	collector := NewCollector(st)
	alerter := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})
	checker := NewChecker(collector, alerter, config.MonitoringConfig{
		CheckIntervalSecs:   1,
		LookbackWindowHours: 24,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(NewCollector(&mockStore{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.NotNil(t, checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_Check_CollectError(t *testing.T) {
	st := &mockStore{listErr: assert.AnError}
	checker := NewChecker(NewCollector(st), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{LookbackWindowHours: 1})

	checker.check(context.Background(), zap.NewNop())
	assert.Len(t, st.filters, 1)
}

func TestProvidersWithoutData(t *testing.T) {
	snap := &MetricsSnapshot{Providers: map[model.Provider]ProviderStats{
		model.ProviderLinkedIn: {Dispatched: 2, Errored: 2},
		model.ProviderApollo:   {Dispatched: 3},
	}}
	assert.Equal(t, []model.Provider{model.ProviderApollo, model.ProviderLinkedIn}, providersWithoutData(snap))

	snap.Providers[model.ProviderApollo] = ProviderStats{Dispatched: 3, WithData: 1}
	assert.Equal(t, []model.Provider{model.ProviderLinkedIn}, providersWithoutData(snap))

	assert.Empty(t, providersWithoutData(&MetricsSnapshot{}))
}

func TestChecker_Check_LogsProviderWithoutData(t *testing.T) {
	failed := attempt(model.StatusFailed, 0, time.Hour)
	failed.Providers = map[model.Provider]model.ProviderOutcome{
		model.ProviderLinkedIn: {Dispatched: true, Error: "LinkedIn Profile: job ended with status FAILED"},
		model.ProviderApollo:   {Dispatched: true, HasData: true},
	}
	st := &mockStore{attempts: []model.Attempt{failed}}
	checker := NewChecker(NewCollector(st), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{LookbackWindowHours: 24})

	core, logs := observer.New(zap.WarnLevel)
	checker.check(context.Background(), zap.New(core))

	entries := logs.FilterMessage("monitoring: provider returned no data, too few jobs to alert").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(model.ProviderLinkedIn), entries[0].ContextMap()["provider"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["errored"])
}
