// Package enrich orchestrates an enrichment attempt: the staleness check,
// concurrent provider jobs, merge and scoring, and persistence.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/apify"
)

// Gateway supplies people and their existing enrichment records.
type Gateway interface {
	RecordFinder
	ListPeople(ctx context.Context) ([]model.Person, error)
	GetPerson(ctx context.Context, id string) (*model.Person, error)
}

// Writer persists enrichment outcomes to the record store.
type Writer interface {
	CreateEnrichmentRecord(ctx context.Context, p model.Person, rec *model.EnrichmentRecord) (string, error)
	UpdatePersonStatus(ctx context.Context, personID string, status model.EnrichmentStatus) error
	Link(ctx context.Context, personID, recordID string) error
}

// History records attempts locally. Failures are logged, never returned.
type History interface {
	SaveAttempt(ctx context.Context, a *model.Attempt) error
}

// Metrics observes attempts and provider jobs.
type Metrics interface {
	ObserveProvider(p model.Provider, status model.JobStatus, hasData bool, elapsed time.Duration)
	ObserveAttempt(status model.EnrichmentStatus, skipped, storageOK bool, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveProvider(model.Provider, model.JobStatus, bool, time.Duration) {}
func (nopMetrics) ObserveAttempt(model.EnrichmentStatus, bool, bool, time.Duration) {}

// Result is what callers get back from an attempt. Provider and persistence
// failures are reported here, not as errors.
type Result struct {
	AttemptID      string                                   `json:"attempt_id" yaml:"attempt_id"`
	Person         model.Person                             `json:"person" yaml:"person"`
	Record         *model.EnrichmentRecord                  `json:"record" yaml:"record"`
	Skipped        bool                                     `json:"skipped" yaml:"skipped"`
	SkipReason     string                                   `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	StorageSuccess bool                                     `json:"storage_success" yaml:"storage_success"`
	RecordID       string                                   `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Linked         bool                                     `json:"linked" yaml:"linked"`
	StatusUpdated  bool                                     `json:"status_updated" yaml:"status_updated"`
	Providers      map[model.Provider]model.ProviderOutcome `json:"providers" yaml:"providers"`
}

// Success reports whether the attempt produced or reused usable data.
func (r *Result) Success() bool {
	return r != nil && r.Record != nil && r.Record.Status != model.StatusFailed
}

// ProviderHasData reports whether provider p returned data in this attempt.
func (r *Result) ProviderHasData(p model.Provider) bool {
	if r == nil {
		return false
	}
	return r.Providers[p].HasData
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock replaces the wall clock for polling, timestamps and staleness.
func WithClock(c apify.Clock) Option {
	return func(e *Enricher) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithStalenessThreshold sets the maximum age of a reusable record.
func WithStalenessThreshold(d time.Duration) Option {
	return func(e *Enricher) { e.threshold = d }
}

// WithStatusRetry sets the retry policy for job status checks.
func WithStatusRetry(cfg resilience.RetryConfig) Option {
	return func(e *Enricher) { e.statusRetry = cfg }
}

// WithBreakers sets the per-provider circuit breakers used for submission.
func WithBreakers(b *resilience.ServiceBreakers) Option {
	return func(e *Enricher) { e.breakers = b }
}

// WithHistory records every attempt in h.
func WithHistory(h History) Option {
	return func(e *Enricher) { e.history = h }
}

// WithMetrics reports attempts and jobs to m.
func WithMetrics(m Metrics) Option {
	return func(e *Enricher) {
		if m != nil {
			e.metrics = m
		}
	}
}

// Enricher runs enrichment attempts.
type Enricher struct {
	gateway  Gateway
	writer   Writer
	client   apify.Client
	registry *provider.Registry

	clock       apify.Clock
	threshold   time.Duration
	statusRetry resilience.RetryConfig
	breakers    *resilience.ServiceBreakers
	history     History
	metrics     Metrics

	gate       *StalenessGate
	dispatcher *Dispatcher
	poller     *Poller
	inFlight   *inFlight
}

// New creates an Enricher.
func New(gw Gateway, w Writer, client apify.Client, reg *provider.Registry, opts ...Option) *Enricher {
	e := &Enricher{
		gateway:     gw,
		writer:      w,
		client:      client,
		registry:    reg,
		clock:       apify.RealClock,
		threshold:   DefaultStalenessThreshold,
		statusRetry: resilience.FailFast(),
		metrics:     nopMetrics{},
		inFlight:    newInFlight(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.gate = NewStalenessGate(gw, e.threshold, e.clock.Now)
	e.dispatcher = NewDispatcher(client, e.breakers, e.clock.Now)
	e.poller = NewPoller(client, e.clock, e.statusRetry)
	return e
}

// Enrich resolves personID and runs an attempt for that person. An unknown
// person is the only outcome returned as an error besides a concurrent
// attempt for the same person.
func (e *Enricher) Enrich(ctx context.Context, personID string) (*Result, error) {
	p, err := e.gateway.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, eris.Wrapf(ErrPersonNotFound, "enrich: person %s", personID)
		}
		return nil, eris.Wrapf(err, "enrich: get person %s", personID)
	}
	if p == nil {
		return nil, eris.Wrapf(ErrPersonNotFound, "enrich: person %s", personID)
	}
	return e.EnrichPerson(ctx, *p)
}

// EnrichPerson runs an attempt for a person already read from the record
// store.
func (e *Enricher) EnrichPerson(ctx context.Context, p model.Person) (*Result, error) {
	release, ok := e.inFlight.acquire(p.ID)
	if !ok {
		return nil, eris.Wrapf(ErrAttemptInProgress, "enrich: person %s", p.ID)
	}
	defer release()

	start := e.clock.Now()
	log := zap.L().With(zap.String("person_id", p.ID))
	res := &Result{
		AttemptID: uuid.NewString(),
		Person:    p,
		Providers: make(map[model.Provider]model.ProviderOutcome),
	}

	decision := e.gate.Check(ctx, p.ID)
	if !decision.Run {
		rec := decision.Existing.Record
		res.Record = &rec
		res.Skipped = true
		res.SkipReason = decision.Reason
		res.StorageSuccess = true
		res.RecordID = rec.ID
		log.Info("enrich: existing record is fresh, skipping",
			zap.String("record_id", rec.ID),
			zap.Duration("age", decision.Age),
		)
		e.finish(ctx, res, start)
		return res, nil
	}
	log.Info("enrich: starting attempt", zap.String("reason", decision.Reason))

	outcomes := e.runProviders(ctx, p)
	for _, o := range outcomes {
		res.Providers[o.Descriptor.ID] = o.Outcome()
	}

	rec := Merge(p, outcomes, e.clock.Now())
	res.Record = rec
	e.persist(ctx, res)

	log.Info("enrich: attempt finished",
		zap.String("status", string(rec.Status)),
		zap.Int("completeness", rec.CompletenessScore),
		zap.String("confidence", string(rec.Confidence)),
		zap.Bool("storage_success", res.StorageSuccess),
		zap.Int("errors", len(rec.Errors)),
	)
	e.finish(ctx, res, start)
	return res, nil
}

// runProviders runs every enabled provider's pipeline concurrently and
// waits for all of them. Each goroutine writes only its own slot.
func (e *Enricher) runProviders(ctx context.Context, p model.Person) []ProviderResult {
	descs := e.registry.Enabled()
	outcomes := make([]ProviderResult, len(descs))

	var g errgroup.Group
	for i, d := range descs {
		g.Go(func() error {
			outcomes[i] = e.runProvider(ctx, d, p)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Enricher) runProvider(ctx context.Context, d provider.Descriptor, p model.Person) ProviderResult {
	start := e.clock.Now()
	out := ProviderResult{Descriptor: d, Result: model.NormalizedResult{}}

	run, err := e.dispatcher.Dispatch(ctx, d, p)
	if err != nil {
		out.Err = err
		e.metrics.ObserveProvider(d.ID, "", false, e.clock.Now().Sub(start))
		return out
	}
	if run == nil {
		return out
	}
	out.Run = run

	raw, err := e.poller.Poll(ctx, d, run)
	if err != nil {
		out.Err = err
	} else {
		out.Result = d.Normalize(raw)
	}
	e.metrics.ObserveProvider(d.ID, run.Status, !out.Result.Empty(), e.clock.Now().Sub(start))
	return out
}

// persist writes the record, links it and updates the person's status. A
// failed record write is folded into the record's errors and status.
func (e *Enricher) persist(ctx context.Context, res *Result) {
	rec := res.Record
	log := zap.L().With(zap.String("person_id", res.Person.ID))

	recordID, err := e.writer.CreateEnrichmentRecord(ctx, res.Person, rec)
	if err != nil {
		log.Error("enrich: record write failed", zap.Error(err))
		rec.AddError(ErrPersistence.Error() + ": " + err.Error())
		rec.Status = DetermineStatus(rec.HasData(), rec.Errors)
	} else {
		rec.ID = recordID
		res.RecordID = recordID
		res.StorageSuccess = true

		if err := e.writer.Link(ctx, res.Person.ID, recordID); err != nil {
			log.Warn("enrich: relation link failed", zap.String("record_id", recordID), zap.Error(err))
		} else {
			res.Linked = true
		}
	}

	if err := e.writer.UpdatePersonStatus(ctx, res.Person.ID, rec.Status); err != nil {
		log.Warn("enrich: person status update failed", zap.Error(err))
	} else {
		res.StatusUpdated = true
	}
}

// finish records the attempt in history and metrics.
func (e *Enricher) finish(ctx context.Context, res *Result, start time.Time) {
	end := e.clock.Now()
	rec := res.Record
	e.metrics.ObserveAttempt(rec.Status, res.Skipped, res.StorageSuccess, end.Sub(start))

	if e.history == nil {
		return
	}
	a := &model.Attempt{
		ID:                res.AttemptID,
		PersonID:          res.Person.ID,
		PersonName:        res.Person.DisplayName(),
		Status:            rec.Status,
		CompletenessScore: rec.CompletenessScore,
		Confidence:        rec.Confidence,
		Skipped:           res.Skipped,
		StorageSuccess:    res.StorageSuccess,
		RecordID:          res.RecordID,
		Providers:         res.Providers,
		Errors:            rec.Errors,
		StartedAt:         start,
		FinishedAt:        end,
	}
	if res.Skipped {
		a.Errors = nil
	}
	if err := e.history.SaveAttempt(ctx, a); err != nil {
		zap.L().Warn("enrich: save attempt history failed",
			zap.String("person_id", res.Person.ID),
			zap.String("error_class", resilience.ClassifyError(err)),
			zap.Error(err),
		)
	}
}
