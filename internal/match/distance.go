package match

import (
	"fmt"
	"math"
)

// maxDistance is returned for degenerate (zero-magnitude) inputs.
// The legacy implementation used 1.0 here and downstream thresholds
// depend on it, so it is not the mathematical maximum of 2.
const maxDistance = 1.0

// Distance computes the cosine distance between two embeddings:
// 1 - (a·b)/(|a||b|). Symmetric. Returns exactly 1.0 when either
// vector has zero magnitude instead of dividing by zero.
func Distance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return maxDistance, nil
	}

	return float32(1 - dot/denom), nil
}
