package enrich

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultStalenessThreshold is the maximum age of a record that is reused.
const DefaultStalenessThreshold = 30 * 24 * time.Hour

// RecordFinder looks up the latest enrichment record for a person. It returns
// (nil, nil) when none exists.
type RecordFinder interface {
	FindEnrichmentRecord(ctx context.Context, personID string) (*model.StoredRecord, error)
}

// Reasons reported by the staleness gate.
const (
	ReasonAbsent      = "absent"
	ReasonFresh       = "fresh"
	ReasonStale       = "stale"
	ReasonUnparsable  = "unparsable_timestamp"
	ReasonLookupError = "lookup_error"
)

// Decision is the staleness gate's verdict.
type Decision struct {
	Run      bool
	Reason   string
	Existing *model.StoredRecord
	Age      time.Duration
}

// StalenessGate decides whether a person needs a new enrichment attempt.
type StalenessGate struct {
	finder    RecordFinder
	threshold time.Duration
	now       func() time.Time
}

// NewStalenessGate creates a gate. A non-positive threshold uses
// DefaultStalenessThreshold.
func NewStalenessGate(finder RecordFinder, threshold time.Duration, now func() time.Time) *StalenessGate {
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &StalenessGate{finder: finder, threshold: threshold, now: now}
}

// Check returns Run=false only when an existing record is younger than the
// threshold. Lookup failures and unparsable timestamps re-run.
func (g *StalenessGate) Check(ctx context.Context, personID string) Decision {
	existing, err := g.finder.FindEnrichmentRecord(ctx, personID)
	if err != nil {
		zap.L().Warn("enrich: existing record lookup failed, re-running",
			zap.String("person_id", personID),
			zap.Error(err),
		)
		return Decision{Run: true, Reason: ReasonLookupError}
	}
	if existing == nil {
		return Decision{Run: true, Reason: ReasonAbsent}
	}

	modified, ok := ParseTimestamp(existing.LastModified)
	if !ok {
		return Decision{Run: true, Reason: ReasonUnparsable, Existing: existing}
	}

	age := g.now().Sub(modified)
	if age > g.threshold {
		return Decision{Run: true, Reason: ReasonStale, Existing: existing, Age: age}
	}
	return Decision{Run: false, Reason: ReasonFresh, Existing: existing, Age: age}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses the timestamp formats the record store emits.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
