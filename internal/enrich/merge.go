package enrich

import (
	"errors"
	"maps"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
)

// ProviderResult is the terminal outcome of one provider pipeline.
type ProviderResult struct {
	Descriptor provider.Descriptor
	Run        *model.JobRun
	Result     model.NormalizedResult
	Err        error
}

// Dispatched reports whether a job was submitted.
func (r ProviderResult) Dispatched() bool { return r.Run != nil }

// Outcome summarises r for callers and attempt history.
func (r ProviderResult) Outcome() model.ProviderOutcome {
	o := model.ProviderOutcome{
		Dispatched: r.Dispatched(),
		HasData:    !r.Result.Empty(),
	}
	if r.Run != nil {
		o.RunID = r.Run.Handle
		o.JobStatus = r.Run.Status
	}
	if r.Err != nil {
		o.Error = r.Err.Error()
	}
	return o
}

// Merge combines provider outcomes, in order, into a scored enrichment
// record. Fields are unioned and an earlier provider's value wins over a later
// one. A failed submission counts as a job that never started and adds no
// error. Merge has no side effects and depends only on its arguments.
func Merge(p model.Person, outcomes []ProviderResult, createdAt time.Time) *model.EnrichmentRecord {
	rec := &model.EnrichmentRecord{
		PersonID:    p.ID,
		PersonName:  p.DisplayName(),
		Results:     make(map[model.Provider]model.NormalizedResult),
		Fields:      model.NormalizedResult{},
		DataSources: []string{},
		Errors:      []string{},
		CreatedAt:   createdAt,
	}

	for _, o := range outcomes {
		if o.Err != nil && !errors.Is(o.Err, ErrSubmission) {
			rec.AddError(o.Err.Error())
		}
		if o.Result.Empty() {
			continue
		}
		rec.Results[o.Descriptor.ID] = maps.Clone(o.Result)
		rec.DataSources = append(rec.DataSources, o.Descriptor.Label)
		for k, v := range o.Result {
			if _, taken := rec.Fields[k]; !taken {
				rec.Fields[k] = v
			}
		}
	}

	rec.CompletenessScore = Completeness(outcomes)
	rec.Confidence = BucketConfidence(ConfidencePoints(outcomes))
	rec.Status = DetermineStatus(rec.HasData(), rec.Errors)
	return rec
}
