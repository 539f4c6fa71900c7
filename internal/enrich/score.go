package enrich

import "github.com/sells-group/enrich-cli/internal/model"

// Confidence bucket thresholds. A score below a threshold falls to the lower
// bucket.
const (
	HighConfidencePoints   = 70
	MediumConfidencePoints = 40
)

// Completeness returns floor(100 * filled / total) over the checklists of
// the providers that returned data. It is 0 when none did.
func Completeness(outcomes []ProviderResult) int {
	filled, total := 0, 0
	for _, o := range outcomes {
		if o.Result.Empty() {
			continue
		}
		filled += o.Descriptor.Filled(o.Result)
		total += len(o.Descriptor.Checklist)
	}
	if total == 0 {
		return 0
	}
	return 100 * filled / total
}

// ConfidencePoints sums each data-bearing provider's signal points.
func ConfidencePoints(outcomes []ProviderResult) int {
	points := 0
	for _, o := range outcomes {
		if o.Result.Empty() || o.Descriptor.Confidence == nil {
			continue
		}
		points += o.Descriptor.Confidence(o.Result)
	}
	return points
}

// BucketConfidence maps points onto a confidence level.
func BucketConfidence(points int) model.ConfidenceLevel {
	switch {
	case points >= HighConfidencePoints:
		return model.ConfidenceHigh
	case points >= MediumConfidencePoints:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// DetermineStatus derives the attempt status: Failed without data, Partial
// with data and errors, Completed otherwise.
func DetermineStatus(hasData bool, errs []string) model.EnrichmentStatus {
	switch {
	case !hasData:
		return model.StatusFailed
	case len(errs) > 0:
		return model.StatusPartial
	default:
		return model.StatusCompleted
	}
}
