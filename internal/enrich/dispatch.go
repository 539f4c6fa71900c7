package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/apify"
)

// Dispatcher submits provider jobs. Submission is never retried; each
// provider's submissions go through its own circuit breaker.
type Dispatcher struct {
	client   apify.Client
	breakers *resilience.ServiceBreakers
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. breakers may be nil.
func NewDispatcher(client apify.Client, breakers *resilience.ServiceBreakers, now func() time.Time) *Dispatcher {
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig(), nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{client: client, breakers: breakers, now: now}
}

// Dispatch builds d's request for p and submits it. It returns (nil, nil)
// when p lacks the input d requires; that is a skip, not an error.
func (ds *Dispatcher) Dispatch(ctx context.Context, d provider.Descriptor, p model.Person) (*model.JobRun, error) {
	input, ok := d.Build(p)
	if !ok {
		zap.L().Debug("enrich: provider skipped, required input missing",
			zap.String("person_id", p.ID),
			zap.String("provider", string(d.ID)),
		)
		return nil, nil
	}

	run, err := resilience.ExecuteVal(ctx, ds.breakers.Get(string(d.ID)), func(ctx context.Context) (*apify.Run, error) {
		return ds.client.StartRun(ctx, d.ActorID, input)
	})
	if err != nil {
		zap.L().Warn("enrich: job submission failed, provider not started",
			zap.String("person_id", p.ID),
			zap.String("provider", string(d.ID)),
			zap.Error(err),
		)
		return nil, &ProviderError{Provider: d.ID, Label: d.Label, Kind: ErrSubmission, Err: err}
	}

	zap.L().Info("enrich: job submitted",
		zap.String("person_id", p.ID),
		zap.String("provider", string(d.ID)),
		zap.String("run_id", run.ID),
	)
	return &model.JobRun{
		Provider:    d.ID,
		Handle:      run.ID,
		DatasetID:   run.DefaultDatasetID,
		SubmittedAt: ds.now(),
		Status:      model.JobStatusSubmitted,
	}, nil
}
