package facematch

// Default thresholds for face matching.
const (
	// DefaultTolerance is the maximum Euclidean distance for a candidate match.
	// Lower values = stricter matching.
	DefaultTolerance = 0.6

	// DefaultAcceptConfidence is the minimum confidence for automated attendance.
	DefaultAcceptConfidence = 0.60

	// DefaultHighConfidence is the confidence at and above which a match is not
	// flagged for review.
	DefaultHighConfidence = 0.70
)

// Thresholds combines the coarse distance gate with the confidence tiers.
// The two are applied one after the other and must not be merged into one cutoff.
type Thresholds struct {
	Tolerance        float64
	AcceptConfidence float64
	HighConfidence   float64
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Tolerance:        DefaultTolerance,
		AcceptConfidence: DefaultAcceptConfidence,
		HighConfidence:   DefaultHighConfidence,
	}
}

// Classify assigns the confidence tier.
func (t Thresholds) Classify(confidence float64) Tier {
	switch {
	case confidence < t.AcceptConfidence:
		return TierRejected
	case confidence < t.HighConfidence:
		return TierLow
	default:
		return TierHigh
	}
}

// BestMatch finds the gallery entry closest to the query among entries within tolerance.
// When several entries share the minimum distance the one with the lowest index wins.
// Returns false if no entry is within tolerance.
func BestMatch(g Gallery, query Embedding, tolerance float64) (MatchResult, bool) {
	distances := DistanceAll(g, query)

	bestIndex := -1
	for i, d := range distances {
		if d > tolerance {
			continue
		}
		if bestIndex == -1 || d < distances[bestIndex] {
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return MatchResult{}, false
	}

	return MatchResult{
		StudentID:  g[bestIndex].StudentID,
		Index:      bestIndex,
		Distance:   distances[bestIndex],
		Confidence: 1 - distances[bestIndex],
	}, true
}

// Label returns the matched student ID, or UnknownLabel when nothing is within tolerance.
func Label(g Gallery, query Embedding, tolerance float64) string {
	if m, ok := BestMatch(g, query, tolerance); ok {
		return m.StudentID
	}
	return UnknownLabel
}
