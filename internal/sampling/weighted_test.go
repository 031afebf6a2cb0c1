package sampling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithoutReplacement_NilRNG(t *testing.T) {
	_, err := WithoutReplacement(nil, []string{"a"}, []float64{1}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "random source is required")
}

func TestWithoutReplacement_LengthMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := WithoutReplacement(rng, []string{"a", "b"}, []float64{1}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 ids but 1 weights")
}

func TestWithoutReplacement_SampleSizeTooLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := WithoutReplacement(rng, []string{"a", "b"}, []float64{1, 1}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds pool size")
}

func TestWithoutReplacement_NegativeSampleSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := WithoutReplacement(rng, []string{"a"}, []float64{1}, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestWithoutReplacement_InvalidWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, bad := range []float64{math.NaN(), math.Inf(1), -0.5} {
		_, err := WithoutReplacement(rng, []string{"a", "b"}, []float64{1, bad}, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid weight")
	}
}

func TestWithoutReplacement_DrawsUniqueSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	weights := []float64{0.2, 0.8, 0.5, 0.1, 0.9, 0.3}

	got, err := WithoutReplacement(rng, ids, weights, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)

	valid := make(map[string]bool, len(ids))
	for _, id := range ids {
		valid[id] = true
	}
	seen := make(map[string]bool, len(got))
	for _, id := range got {
		assert.True(t, valid[id], "drew unknown id %q", id)
		assert.False(t, seen[id], "drew %q twice", id)
		seen[id] = true
	}
}

func TestWithoutReplacement_FullPool(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ids := []string{"a", "b", "c", "d"}
	// One zero weight: k = len(ids) must still return everything.
	weights := []float64{1, 0, 2, 3}

	got, err := WithoutReplacement(rng, ids, weights, len(ids))
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got)
}

func TestWithoutReplacement_FullPoolResidualTotal(t *testing.T) {
	// 0.1 + 0.2 does not cancel exactly when subtracted back out, so after
	// both positive-weight ids are drawn the running total keeps a tiny
	// positive residue while only the zero-weight id remains. The draw must
	// still return the whole pool.
	ids := []string{"a", "b", "zero"}
	weights := []float64{0.1, 0.2, 0}

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got, err := WithoutReplacement(rng, ids, weights, 3)
		require.NoError(t, err, "seed %d", seed)
		assert.ElementsMatch(t, ids, got, "seed %d", seed)
	}
}

func TestWithoutReplacement_ZeroSampleSize(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	got, err := WithoutReplacement(rng, []string{"a", "b"}, []float64{1, 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithoutReplacement_ZeroWeightDeferred(t *testing.T) {
	// With two positive-weight ids and one zero-weight id, a draw of 2 can
	// never contain the zero-weight id.
	ids := []string{"pos1", "zero", "pos2"}
	weights := []float64{1, 0, 1}

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got, err := WithoutReplacement(rng, ids, weights, 2)
		require.NoError(t, err)
		assert.NotContains(t, got, "zero", "seed %d", seed)
	}
}

func TestWithoutReplacement_Deterministic(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	weights := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	first, err := WithoutReplacement(rand.New(rand.NewSource(42)), ids, weights, 3)
	require.NoError(t, err)
	second, err := WithoutReplacement(rand.New(rand.NewSource(42)), ids, weights, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWithoutReplacement_WeightsBiasTheDraw(t *testing.T) {
	// Two heavy ids against eight light ones. Across many seeds the heavy
	// ids should appear in most draws of size 3.
	ids := make([]string, 10)
	weights := make([]float64, 10)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		weights[i] = 0.1
	}
	ids[0], weights[0] = "heavy1", 0.9
	ids[1], weights[1] = "heavy2", 0.9

	heavyHits := 0
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got, err := WithoutReplacement(rng, ids, weights, 3)
		require.NoError(t, err)
		for _, id := range got {
			if id == "heavy1" || id == "heavy2" {
				heavyHits++
			}
		}
	}

	// Uniform sampling would include each heavy id in 3/10 of draws, so
	// about 120 hits over 200 trials. The weighted draw should land well
	// above that.
	assert.Greater(t, heavyHits, 200)
}
