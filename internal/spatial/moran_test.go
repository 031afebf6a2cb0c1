package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prairiefish/survey-cli/internal/model"
)

func gridRecords(values []float64) []model.HabitatRecord {
	// 3x3 unit grid, row-major.
	records := make([]model.HabitatRecord, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			records = append(records, model.HabitatRecord{
				PoolID:    string(rune('A' + len(records))),
				Longitude: float64(j),
				Latitude:  float64(i),
				Value:     values[len(records)],
			})
		}
	}
	return records
}

func TestDistanceMatrix(t *testing.T) {
	records := []model.HabitatRecord{
		{PoolID: "A", Longitude: 0, Latitude: 0},
		{PoolID: "B", Longitude: 3, Latitude: 4},
		{PoolID: "C", Longitude: 0, Latitude: 1},
	}

	dist := DistanceMatrix(records)
	require.Len(t, dist, 3)

	// 3-4-5 triangle.
	assert.InDelta(t, 5.0, dist[0][1], 1e-12)
	assert.InDelta(t, 1.0, dist[0][2], 1e-12)
	for i := range dist {
		assert.Zero(t, dist[i][i])
		for j := range dist {
			assert.Equal(t, dist[i][j], dist[j][i])
		}
	}
}

func TestInverseWeights(t *testing.T) {
	dist := [][]float64{
		{0, 2, 4},
		{2, 0, 0},
		{4, 0, 0},
	}

	w, coincident := InverseWeights(dist)
	assert.Equal(t, 1, coincident)

	assert.InDelta(t, 0.5, w[0][1], 1e-12)
	assert.InDelta(t, 0.25, w[0][2], 1e-12)
	// Coincident pair gets zero weight.
	assert.Zero(t, w[1][2])
	assert.Zero(t, w[2][1])
	for i := range w {
		assert.Zero(t, w[i][i])
	}
}

func TestMoranTest_InsufficientData(t *testing.T) {
	_, err := MoranTest([]float64{1}, [][]float64{{0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient data")
}

func TestAutocorrelation_ZeroVariance(t *testing.T) {
	records := gridRecords([]float64{2, 2, 2, 2, 2, 2, 2, 2, 2})
	_, err := Autocorrelation(records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero variance")
}

func TestAutocorrelation_AllCoincident(t *testing.T) {
	records := []model.HabitatRecord{
		{PoolID: "A", Longitude: 1, Latitude: 1, Value: 0.3},
		{PoolID: "B", Longitude: 1, Latitude: 1, Value: 0.7},
	}
	_, err := Autocorrelation(records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sums to zero")
}

func TestAutocorrelation_ClusteredValues(t *testing.T) {
	// Low values on the left of the grid, high on the right: strong
	// positive autocorrelation.
	records := gridRecords([]float64{
		1, 5, 9,
		1, 5, 9,
		1, 5, 9,
	})

	result, err := Autocorrelation(records)
	require.NoError(t, err)

	assert.Equal(t, 9, result.N)
	// E[I] = -1/(9-1).
	assert.InDelta(t, -0.125, result.Expected, 1e-12)
	assert.Greater(t, result.I, result.Expected)
	assert.Greater(t, result.ZScore, 0.0)
	assert.Less(t, result.PValue, 0.5)
	assert.Greater(t, result.Variance, 0.0)
}

func TestAutocorrelation_AlternatingValues(t *testing.T) {
	// Checkerboard: neighbors disagree, so I falls below its expectation
	// and the one-sided p-value is large.
	records := gridRecords([]float64{
		1, 9, 1,
		9, 1, 9,
		1, 9, 1,
	})

	result, err := Autocorrelation(records)
	require.NoError(t, err)

	assert.Less(t, result.I, result.Expected)
	assert.Less(t, result.ZScore, 0.0)
	assert.Greater(t, result.PValue, 0.5)
}

func TestAutocorrelation_CoincidentPairStillTests(t *testing.T) {
	// Two coincident sites among distinct ones: the pair is zero-weighted
	// but the test still runs.
	records := []model.HabitatRecord{
		{PoolID: "A", Longitude: 0, Latitude: 0, Value: 1.2},
		{PoolID: "B", Longitude: 0, Latitude: 0, Value: 1.4},
		{PoolID: "C", Longitude: 1, Latitude: 0, Value: 0.4},
		{PoolID: "D", Longitude: 0, Latitude: 1, Value: 0.9},
	}

	result, err := Autocorrelation(records)
	require.NoError(t, err)
	assert.Equal(t, 4, result.N)
	assert.False(t, result.PValue < 0 || result.PValue > 1)
}
