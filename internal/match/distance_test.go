package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSelfIsZero(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
		{-3, 2, 7, 0.1},
	}
	for _, v := range vectors {
		d, err := Distance(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, d, 1e-5)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := []float32{0.2, -0.4, 0.9, 0.1}
	b := []float32{-0.7, 0.3, 0.3, 0.5}

	dab, err := Distance(a, b)
	require.NoError(t, err)
	dba, err := Distance(b, a)
	require.NoError(t, err)

	assert.Equal(t, dab, dba)
}

func TestDistanceZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	d, err := Distance(zero, v)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), d)

	d, err = Distance(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), d)
}

func TestDistanceOrthogonal(t *testing.T) {
	d, err := Distance([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-5)
}

func TestDistanceOpposite(t *testing.T) {
	d, err := Distance([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d, 1e-5)
}

func TestDistanceLengthMismatch(t *testing.T) {
	_, err := Distance([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}
