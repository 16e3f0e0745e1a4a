package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/azuratime/internal/models"
)

// unitAt builds a unit vector at the given angle so the cosine distance
// to the x axis probe is exactly 1-cos(angle).
func unitAt(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func TestBestPicksNearest(t *testing.T) {
	probe := []float32{1, 0}
	gallery := []models.Face{
		{StudentID: "alice", Name: "Alice", Embedding: unitAt(math.Acos(0.9))}, // distance 0.1
		{StudentID: "bob", Name: "Bob", Embedding: unitAt(math.Acos(0.1))},    // distance 0.9
	}

	m, ok, err := Best(probe, gallery, 0.4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", m.StudentID)
	assert.InDelta(t, 0.1, m.Distance, 1e-5)
}

func TestBestRejectsAboveThreshold(t *testing.T) {
	probe := []float32{1, 0}
	gallery := []models.Face{
		{StudentID: "alice", Embedding: unitAt(math.Acos(0.5))}, // distance 0.5
	}

	_, ok, err := Best(probe, gallery, 0.4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBestThresholdIsStrict(t *testing.T) {
	probe := []float32{1, 0}
	gallery := []models.Face{
		{StudentID: "edge", Embedding: unitAt(math.Acos(0.6))}, // distance ~0.4
	}

	// Distance equal to the threshold must be rejected.
	_, ok, err := Best(probe, gallery, 0.4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBestTieKeepsFirst(t *testing.T) {
	emb := unitAt(math.Acos(0.95))
	probe := []float32{1, 0}
	gallery := []models.Face{
		{StudentID: "first", Embedding: emb},
		{StudentID: "second", Embedding: emb},
	}

	m, ok, err := Best(probe, gallery, 0.4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", m.StudentID)
}

func TestBestEmptyGallery(t *testing.T) {
	_, ok, err := Best([]float32{1, 0}, nil, 0.4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBestLengthMismatch(t *testing.T) {
	gallery := []models.Face{{StudentID: "x", Embedding: []float32{1, 2, 3}}}
	_, _, err := Best([]float32{1, 0}, gallery, 0.4)
	assert.Error(t, err)
}
