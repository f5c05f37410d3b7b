package facematch

// UnknownLabel is the identity reported for a face with no gallery match within tolerance.
const UnknownLabel = "Unknown"

// Embedding is a fixed-length face feature vector produced by the encoder.
type Embedding []float64

// Entry is one enrolled identity and its embedding.
type Entry struct {
	StudentID string
	Embedding Embedding
}

// Gallery is the ordered set of enrolled entries. Order is insertion order
// and is the index used by DistanceAll and MatchResult.Index.
type Gallery []Entry

// MatchResult is the nearest gallery entry for a query embedding.
type MatchResult struct {
	StudentID  string
	Index      int
	Distance   float64
	Confidence float64 // 1 - Distance
}

// Tier labels a match confidence for automated attendance.
type Tier int

const (
	TierRejected Tier = iota // below the acceptance threshold
	TierLow                  // accepted, flagged for human review
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierLow:
		return "low"
	default:
		return "rejected"
	}
}
