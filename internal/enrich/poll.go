package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/apify"
)

// Poller waits for submitted jobs and collects their results.
type Poller struct {
	client      apify.Client
	clock       apify.Clock
	statusRetry resilience.RetryConfig
}

// NewPoller creates a Poller. A nil clock uses the wall clock.
func NewPoller(client apify.Client, clock apify.Clock, statusRetry resilience.RetryConfig) *Poller {
	if clock == nil {
		clock = apify.RealClock
	}
	return &Poller{client: client, clock: clock, statusRetry: statusRetry}
}

// jobStatus maps the poll loop's final state onto a JobRun status.
func jobStatus(s apify.PollState) model.JobStatus {
	switch s {
	case apify.PollSucceeded:
		return model.JobStatusSucceeded
	case apify.PollFailed:
		return model.JobStatusFailed
	case apify.PollAborted:
		return model.JobStatusAborted
	case apify.PollTimedOut:
		return model.JobStatusTimedOut
	case apify.PollAbandoned:
		return model.JobStatusLocallyAbandoned
	case apify.PollRunning:
		return model.JobStatusRunning
	default:
		return model.JobStatusSubmitted
	}
}

// Poll blocks until run reaches a terminal state or d.MaxWait elapses, and
// updates run.Status. It returns the raw results on success; every other
// outcome is a *ProviderError and no results.
func (p *Poller) Poll(ctx context.Context, d provider.Descriptor, run *model.JobRun) ([]model.RawResult, error) {
	log := zap.L().With(
		zap.String("provider", string(d.ID)),
		zap.String("run_id", run.Handle),
	)

	res, err := apify.PollRun(ctx, p.client, run.Handle,
		apify.WithClock(p.clock),
		apify.WithPollInterval(d.PollInterval),
		apify.WithMaxWait(d.MaxWait),
		apify.WithStatusRetry(p.statusRetry),
		apify.WithStateHook(func(s apify.PollState, r apify.Run) {
			log.Debug("enrich: job status", zap.String("status", string(r.Status)))
		}),
	)
	run.Status = jobStatus(res.State)
	if res.Run.DefaultDatasetID != "" {
		run.DatasetID = res.Run.DefaultDatasetID
	}

	if err != nil {
		kind := ErrStatusCheck
		if res.State == apify.PollSucceeded {
			kind = ErrResultFetch
		} else {
			// the loop is over; the remote run is no longer tracked.
			run.Status = model.JobStatusFailed
		}
		log.Warn("enrich: poll ended with error", zap.Error(err), zap.Int("checks", res.Checks))
		return nil, &ProviderError{Provider: d.ID, Label: d.Label, Kind: kind, RunID: run.Handle, Err: err}
	}

	switch res.State {
	case apify.PollSucceeded:
		raw := make([]model.RawResult, 0, len(res.Items))
		for _, item := range res.Items {
			raw = append(raw, model.RawResult(item))
		}
		log.Info("enrich: job succeeded",
			zap.Int("items", len(raw)),
			zap.Duration("elapsed", res.Elapsed),
		)
		return raw, nil
	case apify.PollAbandoned:
		log.Warn("enrich: job abandoned after max wait", zap.Duration("max_wait", d.MaxWait))
		return nil, &ProviderError{
			Provider: d.ID, Label: d.Label, Kind: ErrLocalTimeout, RunID: run.Handle,
			Detail: "waited " + d.MaxWait.String(),
		}
	default:
		log.Warn("enrich: job ended without results", zap.String("status", string(res.Run.Status)))
		return nil, &ProviderError{
			Provider: d.ID, Label: d.Label, Kind: ErrJobFailed, RunID: run.Handle,
			Detail: "status " + string(res.Run.Status),
		}
	}
}

