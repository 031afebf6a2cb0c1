// Package spatial implements the inverse-distance Moran's I check used to
// verify that a habitat covariate is not spatially clustered among
// previously measured sites.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/prairiefish/survey-cli/internal/model"
)

// MoranResult holds the outcome of the autocorrelation test against the
// one-sided alternative of positive spatial autocorrelation.
type MoranResult struct {
	I        float64 `json:"observed"`
	Expected float64 `json:"expected"`
	Variance float64 `json:"variance"`
	ZScore   float64 `json:"z_score"`
	PValue   float64 `json:"p_value"`
	N        int     `json:"n"`
}

// DistanceMatrix builds the pairwise Euclidean distance matrix over the
// record coordinates.
func DistanceMatrix(records []model.HabitatRecord) [][]float64 {
	n := len(records)
	coords := make([]geom.Coord, n)
	for i, r := range records {
		coords[i] = geom.Coord{r.Longitude, r.Latitude}
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := xy.Distance(coords[i], coords[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// InverseWeights converts a distance matrix to inverse-distance weights.
// The diagonal is zero, and coincident pairs (distance 0 off the diagonal)
// also get weight zero: two records at the same location carry no usable
// spatial information, and 1/0 would poison the statistic. The number of
// zeroed coincident pairs is returned.
func InverseWeights(dist [][]float64) ([][]float64, int) {
	n := len(dist)
	w := make([][]float64, n)
	for i := range w {
		w[i] = make([]float64, n)
	}

	coincident := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dist[i][j] == 0 {
				if i < j {
					coincident++
				}
				continue
			}
			w[i][j] = 1 / dist[i][j]
		}
	}
	return w, coincident
}

// MoranTest computes Moran's I for values under the given weight matrix,
// with the expectation and variance from the normality assumption and a
// one-sided (greater) p-value.
func MoranTest(values []float64, weights [][]float64) (*MoranResult, error) {
	n := len(values)
	if n < 2 {
		return nil, eris.Errorf("spatial: insufficient data: %d complete sites, need at least 2", n)
	}
	if len(weights) != n {
		return nil, eris.Errorf("spatial: weight matrix is %dx%d but there are %d values", len(weights), len(weights), n)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	// Deviations and their squared sum.
	dev := make([]float64, n)
	var ssq float64
	for i, v := range values {
		dev[i] = v - mean
		ssq += dev[i] * dev[i]
	}
	if ssq == 0 {
		return nil, eris.New("spatial: covariate has zero variance across sites")
	}

	var sumW, cross float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sumW += weights[i][j]
			cross += weights[i][j] * dev[i] * dev[j]
		}
	}
	if sumW == 0 {
		return nil, eris.New("spatial: weight matrix sums to zero (all sites coincident?)")
	}

	nf := float64(n)
	observed := (nf / sumW) * (cross / ssq)
	expected := -1 / (nf - 1)

	// Variance under normality.
	var s1, s2 float64
	for i := 0; i < n; i++ {
		var rowSum, colSum float64
		for j := 0; j < n; j++ {
			wij := weights[i][j]
			wji := weights[j][i]
			s1 += (wij + wji) * (wij + wji)
			rowSum += wij
			colSum += wji
		}
		s2 += (rowSum + colSum) * (rowSum + colSum)
	}
	s1 /= 2

	variance := (nf*nf*s1-nf*s2+3*sumW*sumW)/(sumW*sumW*(nf*nf-1)) - expected*expected
	if variance <= 0 || math.IsNaN(variance) {
		return nil, eris.New("spatial: degenerate weight structure, variance of Moran's I is not positive")
	}

	z := (observed - expected) / math.Sqrt(variance)
	p := distuv.UnitNormal.Survival(z)

	return &MoranResult{
		I:        observed,
		Expected: expected,
		Variance: variance,
		ZScore:   z,
		PValue:   p,
		N:        n,
	}, nil
}

// Autocorrelation runs the full check on complete-case habitat records:
// distance matrix, inverse-distance weights, Moran's I.
func Autocorrelation(records []model.HabitatRecord) (*MoranResult, error) {
	if len(records) < 2 {
		return nil, eris.Errorf("spatial: insufficient data: %d complete sites, need at least 2", len(records))
	}

	dist := DistanceMatrix(records)
	weights, coincident := InverseWeights(dist)
	if coincident > 0 {
		zap.L().Warn("spatial: coincident site coordinates given zero weight",
			zap.Int("pairs", coincident),
		)
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}

	result, err := MoranTest(values, weights)
	if err != nil {
		return nil, err
	}

	zap.L().Info("spatial: Moran's I computed",
		zap.Int("sites", result.N),
		zap.Float64("observed", result.I),
		zap.Float64("expected", result.Expected),
		zap.Float64("p_value", result.PValue),
	)
	return result, nil
}
