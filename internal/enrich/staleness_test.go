package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/model"
)

func gateWith(existing *model.StoredRecord, err error) *StalenessGate {
	gw := &fakeGateway{existing: map[string]*model.StoredRecord{"p1": existing}, findErr: err}
	return NewStalenessGate(gw, 0, func() time.Time { return testNow })
}

func stored(lastModified string) *model.StoredRecord {
	return &model.StoredRecord{Record: model.EnrichmentRecord{ID: "rec-1"}, LastModified: lastModified}
}

func TestStalenessGate(t *testing.T) {
	tests := []struct {
		name       string
		existing   *model.StoredRecord
		findErr    error
		wantRun    bool
		wantReason string
	}{
		{"absent", nil, nil, true, ReasonAbsent},
		{"10 days old", stored(testNow.Add(-10 * 24 * time.Hour).Format(time.RFC3339)), nil, false, ReasonFresh},
		{"45 days old", stored(testNow.Add(-45 * 24 * time.Hour).Format(time.RFC3339)), nil, true, ReasonStale},
		{"exactly 30 days", stored(testNow.Add(-30 * 24 * time.Hour).Format(time.RFC3339)), nil, false, ReasonFresh},
		{"date only, 2 days", stored(testNow.Add(-48 * time.Hour).Format(time.DateOnly)), nil, false, ReasonFresh},
		{"millis with zone", stored("2026-02-20T08:30:00.000+00:00"), nil, false, ReasonFresh},
		{"unparsable", stored("last tuesday"), nil, true, ReasonUnparsable},
		{"empty timestamp", stored(""), nil, true, ReasonUnparsable},
		{"lookup error", nil, errors.New("notion: HTTP 500"), true, ReasonLookupError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gateWith(tt.existing, tt.findErr).Check(context.Background(), "p1")
			assert.Equal(t, tt.wantRun, d.Run)
			assert.Equal(t, tt.wantReason, d.Reason)
			if !d.Run {
				assert.Equal(t, "rec-1", d.Existing.Record.ID)
			}
		})
	}
}

func TestStalenessGate_CustomThreshold(t *testing.T) {
	gw := &fakeGateway{existing: map[string]*model.StoredRecord{
		"p1": stored(testNow.Add(-10 * 24 * time.Hour).Format(time.RFC3339)),
	}}
	g := NewStalenessGate(gw, 7*24*time.Hour, func() time.Time { return testNow })

	d := g.Check(context.Background(), "p1")
	assert.True(t, d.Run)
	assert.Equal(t, 10*24*time.Hour, d.Age)
}

func TestParseTimestamp(t *testing.T) {
	_, ok := ParseTimestamp("2026-01-02T15:04:05Z")
	assert.True(t, ok)
	_, ok = ParseTimestamp("2026-01-02T15:04:05.123456Z")
	assert.True(t, ok)
	_, ok = ParseTimestamp("2026-01-02")
	assert.True(t, ok)
	_, ok = ParseTimestamp("01/02/2026")
	assert.False(t, ok)
}
