package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// collectLimit bounds how many attempts one snapshot reads.
const collectLimit = 10000

// ProviderStats counts one provider's jobs within the window.
type ProviderStats struct {
	Dispatched int `json:"dispatched"`
	WithData   int `json:"with_data"`
	Errored    int `json:"errored"`
}

// MetricsSnapshot holds a point-in-time view of enrichment health.
type MetricsSnapshot struct {
	Total           int     `json:"total"`
	Skipped         int     `json:"skipped"`
	Completed       int     `json:"completed"`
	Partial         int     `json:"partial"`
	Failed          int     `json:"failed"`
	StorageFailed   int     `json:"storage_failed"`
	FailRate        float64 `json:"fail_rate"`
	AvgCompleteness float64 `json:"avg_completeness"`

	Providers map[model.Provider]ProviderStats `json:"providers"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Attempted is the number of attempts that ran providers.
func (s *MetricsSnapshot) Attempted() int {
	return s.Total - s.Skipped
}

// AttemptLister reads the attempt history.
type AttemptLister interface {
	ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.Attempt, error)
}

// Collector gathers metrics from the attempt history.
type Collector struct {
	store AttemptLister
}

// NewCollector creates a new metrics collector.
func NewCollector(st AttemptLister) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of attempt metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		Providers:     make(map[model.Provider]ProviderStats),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	attempts, err := c.store.ListAttempts(ctx, model.AttemptFilter{
		StartedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        collectLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list attempts")
	}

	snap.Total = len(attempts)
	var totalCompleteness int
	for _, a := range attempts {
		if a.Skipped {
			snap.Skipped++
			continue
		}
		switch a.Status {
		case model.StatusCompleted:
			snap.Completed++
		case model.StatusPartial:
			snap.Partial++
		case model.StatusFailed:
			snap.Failed++
		}
		if !a.StorageSuccess {
			snap.StorageFailed++
		}
		totalCompleteness += a.CompletenessScore

		for id, o := range a.Providers {
			if !o.Dispatched {
				continue
			}
			ps := snap.Providers[id]
			ps.Dispatched++
			if o.HasData {
				ps.WithData++
			}
			if o.Error != "" {
				ps.Errored++
			}
			snap.Providers[id] = ps
		}
	}

	if n := snap.Attempted(); n > 0 {
		snap.FailRate = float64(snap.Failed) / float64(n)
		snap.AvgCompleteness = float64(totalCompleteness) / float64(n)
	}
	return snap, nil
}
