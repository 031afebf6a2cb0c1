package occupancy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/prairiefish/survey-cli/internal/model"
)

func history(id string, depth float64, hauls ...int) model.DetectionHistory {
	h := model.DetectionHistory{PoolID: id, Depth: depth}
	for i, v := range hauls {
		val := v
		h.Hauls[i] = &val
	}
	return h
}

// surveyHistories is a ten-site season where detections generally increase
// with depth but with enough noise that the likelihood has an interior
// optimum.
func surveyHistories() []model.DetectionHistory {
	return []model.DetectionHistory{
		history("P-01", 0.2, 0, 0, 0),
		history("P-02", 0.3, 0, 0, 0),
		history("P-03", 0.4, 1, 0, 0),
		history("P-04", 0.5, 0, 0, 0),
		history("P-05", 0.6, 0, 1, 0),
		history("P-06", 0.7, 1, 1, 0),
		history("P-07", 0.8, 0, 0, 0),
		history("P-08", 0.9, 1, 0, 1),
		history("P-09", 1.0, 1, 1, 1),
		history("P-10", 1.1, 0, 1, 1),
	}
}

func TestFit_Converges(t *testing.T) {
	fitted, err := Fit(surveyHistories(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 10, fitted.Sites)
	assert.Less(t, fitted.LogLikelihood, 0.0)

	assert.Greater(t, fitted.DetectionProb, 0.0)
	assert.Less(t, fitted.DetectionProb, 1.0)

	// Detections rise with depth, so the slope should come out positive.
	assert.Greater(t, fitted.OccSlope, 0.0)

	for name, se := range map[string]float64{
		"occ intercept": fitted.OccInterceptSE,
		"occ slope":     fitted.OccSlopeSE,
		"det intercept": fitted.DetInterceptSE,
	} {
		assert.False(t, math.IsNaN(se), "%s SE is NaN", name)
		assert.GreaterOrEqual(t, se, 0.0, "%s SE is negative", name)
	}
}

func TestFit_PredictBounds(t *testing.T) {
	fitted, err := Fit(surveyHistories(), Options{})
	require.NoError(t, err)

	for _, depth := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.2, 2.0} {
		pred := fitted.Predict(depth)
		assert.GreaterOrEqual(t, pred.Psi, 0.0)
		assert.LessOrEqual(t, pred.Psi, 1.0)
		assert.LessOrEqual(t, pred.Lower, pred.Psi, "depth %.1f", depth)
		assert.GreaterOrEqual(t, pred.Upper, pred.Psi, "depth %.1f", depth)
		assert.GreaterOrEqual(t, pred.Lower, 0.0)
		assert.LessOrEqual(t, pred.Upper, 1.0)
	}

	// Positive slope: deeper pools predict higher occupancy.
	assert.Greater(t, fitted.Predict(1.0).Psi, fitted.Predict(0.3).Psi)
}

func TestFit_ThreeSiteSeason(t *testing.T) {
	// A small season where every detected site is deeper than the
	// undetected one, so the occupancy link saturates. The fit must still
	// land at a usable optimum with finite estimates and standard errors.
	histories := []model.DetectionHistory{
		history("P-01", 0.5, 1, 0, 0),
		history("P-02", 0.3, 0, 0, 0),
		history("P-03", 0.7, 1, 1, 0),
	}

	fitted, err := Fit(histories, Options{MaxIterations: 2000})
	require.NoError(t, err)

	assert.Equal(t, 3, fitted.Sites)
	for name, v := range map[string]float64{
		"occ intercept":    fitted.OccIntercept,
		"occ slope":        fitted.OccSlope,
		"detection prob":   fitted.DetectionProb,
		"occ intercept SE": fitted.OccInterceptSE,
		"occ slope SE":     fitted.OccSlopeSE,
		"det intercept SE": fitted.DetInterceptSE,
	} {
		assert.False(t, math.IsNaN(v), "%s is NaN", name)
		assert.False(t, math.IsInf(v, 0), "%s is infinite", name)
	}

	// With both detected sites deeper than the undetected one, predicted
	// occupancy must increase with depth.
	assert.Greater(t, fitted.Predict(0.7).Psi, fitted.Predict(0.3).Psi)

	for _, depth := range []float64{0.3, 0.5, 0.7} {
		pred := fitted.Predict(depth)
		assert.GreaterOrEqual(t, pred.Psi, 0.0)
		assert.LessOrEqual(t, pred.Psi, 1.0)
		assert.LessOrEqual(t, pred.Lower, pred.Psi)
		assert.GreaterOrEqual(t, pred.Upper, pred.Psi)
	}
}

func TestFit_ExcludesSites(t *testing.T) {
	fitted, err := Fit(surveyHistories(), Options{Exclude: []string{"P-01", "P-10"}})
	require.NoError(t, err)
	assert.Equal(t, 8, fitted.Sites)
}

func TestFit_UnknownExclusionIgnored(t *testing.T) {
	fitted, err := Fit(surveyHistories(), Options{Exclude: []string{"P-99"}})
	require.NoError(t, err)
	assert.Equal(t, 10, fitted.Sites)
}

func TestFit_DropsSitesWithNoVisits(t *testing.T) {
	histories := append(surveyHistories(),
		model.DetectionHistory{PoolID: "P-11", Depth: 0.6})

	fitted, err := Fit(histories, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, fitted.Sites)
}

func TestFit_NoUsableHistories(t *testing.T) {
	histories := []model.DetectionHistory{
		history("P-01", 0.5, 1, 0, 0),
	}
	_, err := Fit(histories, Options{Exclude: []string{"P-01"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable detection histories")
}

func TestFit_ZeroDetections(t *testing.T) {
	histories := []model.DetectionHistory{
		history("P-01", 0.5, 0, 0, 0),
		history("P-02", 0.3, 0, 0, 0),
	}
	_, err := Fit(histories, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero detections")
}

func TestDetectionHistoryCounts(t *testing.T) {
	h := history("P-01", 0.5, 1, 0)
	assert.Equal(t, 2, h.Visits())
	assert.Equal(t, 1, h.Detections())

	empty := model.DetectionHistory{PoolID: "P-02", Depth: 0.3}
	assert.Zero(t, empty.Visits())
	assert.Zero(t, empty.Detections())
}

func TestLogistic(t *testing.T) {
	assert.InDelta(t, 0.5, logistic(0), 1e-12)
	assert.InDelta(t, 1.0, logistic(50), 1e-9)
	assert.InDelta(t, 0.0, logistic(-50), 1e-9)
}

func TestStdErr_BadDiagonal(t *testing.T) {
	// Inverting an ill-conditioned information matrix can leave negative
	// or non-finite diagonal entries; those must not surface as NaN SEs.
	cov := mat.NewDense(nParams, nParams, []float64{
		0.04, 0, 0,
		0, -0.5, 0,
		0, 0, math.NaN(),
	})

	assert.InDelta(t, 0.2, stdErr(cov, 0), 1e-12)
	assert.Zero(t, stdErr(cov, 1))
	assert.Zero(t, stdErr(cov, 2))

	inf := mat.NewDense(nParams, nParams, []float64{
		math.Inf(1), 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	assert.Zero(t, stdErr(inf, 0))
}

func TestNegGradMatchesFiniteDifferences(t *testing.T) {
	lik, err := buildLikelihood(surveyHistories(), nil)
	require.NoError(t, err)

	params := []float64{0.2, -0.4, 0.3}
	grad := make([]float64, nParams)
	lik.negGrad(grad, params)

	const h = 1e-6
	for i := 0; i < nParams; i++ {
		plus := append([]float64(nil), params...)
		minus := append([]float64(nil), params...)
		plus[i] += h
		minus[i] -= h
		fd := (lik.negLogLik(plus) - lik.negLogLik(minus)) / (2 * h)
		assert.InDelta(t, fd, grad[i], 1e-4, "param %d", i)
	}
}
