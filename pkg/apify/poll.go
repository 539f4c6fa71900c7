package apify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultMaxWait      = 5 * time.Minute
)

// Clock supplies wall-clock time and sleeping to the poll loop.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RealClock is the Clock backed by the time package.
var RealClock Clock = realClock{}

// PollState is the local state of a run while it is being polled.
type PollState string

const (
	PollSubmitted PollState = "submitted"
	PollRunning   PollState = "running"
	PollSucceeded PollState = "succeeded"
	PollFailed    PollState = "failed"
	PollAborted   PollState = "aborted"
	PollTimedOut  PollState = "timed_out"
	// PollAbandoned means the max wait elapsed before the run reached a
	// terminal state. The remote run is left alone.
	PollAbandoned PollState = "abandoned"
)

// stateFor maps a remote status onto the poll state machine.
func stateFor(s RunStatus) PollState {
	switch s {
	case StatusSucceeded:
		return PollSucceeded
	case StatusFailed:
		return PollFailed
	case StatusAborted:
		return PollAborted
	case StatusTimedOut:
		return PollTimedOut
	case StatusReady:
		return PollSubmitted
	default:
		return PollRunning
	}
}

// PollResult is what a poll loop observed.
type PollResult struct {
	State   PollState
	Run     Run
	Items   []map[string]any
	Checks  int
	Elapsed time.Duration
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval    time.Duration
	maxWait     time.Duration
	clock       Clock
	statusRetry resilience.RetryConfig
	onState     func(PollState, Run)
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		interval:    defaultPollInterval,
		maxWait:     defaultMaxWait,
		clock:       RealClock,
		statusRetry: resilience.FailFast(),
	}
}

// WithPollInterval sets the sleep between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxWait sets how long to poll before abandoning the run.
func WithMaxWait(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clk Clock) PollOption {
	return func(c *pollConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithStatusRetry sets the retry policy for a single status check. The
// default makes one attempt, so a failed check ends the loop.
func WithStatusRetry(cfg resilience.RetryConfig) PollOption {
	return func(c *pollConfig) {
		c.statusRetry = cfg
	}
}

// WithStateHook is called after each status check.
func WithStateHook(fn func(PollState, Run)) PollOption {
	return func(c *pollConfig) {
		c.onState = fn
	}
}

// PollRun polls GetRun until the run reaches a terminal state or the max wait
// elapses. On success it fetches the run's default dataset. A failed status
// check or dataset fetch returns the partial result with an error. The sleep
// before the last check is clamped to the remaining budget, so the loop never
// runs longer than max wait plus one round trip.
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*PollResult, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	start := cfg.clock.Now()
	res := &PollResult{State: PollSubmitted}
	done := func() *PollResult {
		res.Elapsed = cfg.clock.Now().Sub(start)
		return res
	}

	for {
		if cfg.clock.Now().Sub(start) >= cfg.maxWait {
			res.State = PollAbandoned
			return done(), nil
		}

		run, err := cfg.checkStatus(ctx, client, runID, start)
		if err != nil {
			return done(), eris.Wrapf(err, "apify: poll run %s", runID)
		}
		res.Checks++
		res.Run = *run
		res.State = stateFor(run.Status)
		if cfg.onState != nil {
			cfg.onState(res.State, *run)
		}

		switch res.State {
		case PollSucceeded:
			if run.DefaultDatasetID == "" {
				return done(), eris.Errorf("apify: run %s succeeded without a dataset", runID)
			}
			items, err := client.GetDatasetItems(ctx, run.DefaultDatasetID)
			if err != nil {
				return done(), eris.Wrapf(err, "apify: fetch results for run %s", runID)
			}
			res.Items = items
			return done(), nil
		case PollFailed, PollAborted, PollTimedOut:
			return done(), nil
		}

		remaining := cfg.maxWait - cfg.clock.Now().Sub(start)
		if remaining <= 0 {
			continue
		}
		if err := cfg.clock.Sleep(ctx, min(cfg.interval, remaining)); err != nil {
			return done(), eris.Wrapf(err, "apify: poll run %s cancelled", runID)
		}
	}
}

// checkStatus fetches the run, retrying per the status retry policy. Backoff
// sleeps go through the poll clock and a retry is only made when its backoff
// fits in the remaining max wait.
func (cfg pollConfig) checkStatus(ctx context.Context, client Client, runID string, start time.Time) (*Run, error) {
	retry := cfg.statusRetry.Normalize()
	for attempt := 0; ; attempt++ {
		run, err := client.GetRun(ctx, runID)
		if err == nil {
			return run, nil
		}
		if attempt == retry.MaxAttempts-1 || ctx.Err() != nil || !retry.Retryable(err) {
			return nil, err
		}

		backoff := retry.Backoff(attempt)
		if cfg.maxWait-cfg.clock.Now().Sub(start) <= backoff {
			return nil, eris.Wrap(err, "apify: no time left to retry status check")
		}
		if retry.OnRetry != nil {
			retry.OnRetry(attempt+1, err)
		}
		if serr := cfg.clock.Sleep(ctx, backoff); serr != nil {
			return nil, err
		}
	}
}
