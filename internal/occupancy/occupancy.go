// Package occupancy fits a single-season occupancy model to repeated-visit
// detection histories and predicts occupancy probability at new sites.
//
// Detection probability is intercept-only (constant across sites and
// visits); occupancy probability is a logistic function of a single site
// covariate (pool depth). The joint likelihood follows the standard
// single-season formulation: a history with at least one detection
// contributes psi * p^d * (1-p)^(v-d); an all-zero history contributes
// (1-psi) + psi * (1-p)^v, where v counts the visits actually conducted.
package occupancy

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/prairiefish/survey-cli/internal/model"
)

// Parameter vector layout: [occupancy intercept, occupancy slope, detection intercept].
const nParams = 3

// Options controls the fit.
type Options struct {
	// MaxIterations bounds the optimizer. Zero means the default (500).
	MaxIterations int
	// GradientTolerance is the convergence threshold on the gradient
	// infinity norm. Zero means the default (1e-8).
	GradientTolerance float64
	// Exclude drops specific sites by ID before fitting, e.g. known
	// data-quality exclusions.
	Exclude []string
}

// Fitted is a fitted occupancy model.
type Fitted struct {
	OccIntercept float64
	OccSlope     float64
	DetIntercept float64

	OccInterceptSE float64
	OccSlopeSE     float64
	DetInterceptSE float64

	// DetectionProb is the estimated per-visit detection probability.
	DetectionProb float64
	LogLikelihood float64
	Sites         int

	cov *mat.Dense
}

// likelihood holds the fitting data in flat form.
type likelihood struct {
	depth      []float64
	detections []float64
	visits     []float64
}

// Fit estimates the model from detection histories. It fails with a
// descriptive error on degenerate input and with a non-convergence error if
// the optimizer does not reach a stable optimum within its budget.
func Fit(histories []model.DetectionHistory, opts Options) (*Fitted, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 500
	}
	if opts.GradientTolerance <= 0 {
		opts.GradientTolerance = 1e-8
	}

	lik, err := buildLikelihood(histories, opts.Exclude)
	if err != nil {
		return nil, err
	}

	problem := optimize.Problem{
		Func: lik.negLogLik,
		Grad: lik.negGrad,
	}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIterations,
		GradientThreshold: opts.GradientTolerance,
	}

	x0 := make([]float64, nParams) // psi = p = 0.5
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if err == nil {
		err = result.Status.Err()
	}
	if err != nil {
		// Sparse seasons can saturate the occupancy link, leaving the
		// likelihood nearly flat at the optimum; the line search then
		// stalls before the gradient threshold is met. Accept the point
		// if the gradient is already negligible.
		if result == nil || !nearStationary(lik, result.X) {
			return nil, eris.Wrap(err, "occupancy: fit did not converge")
		}
		zap.L().Warn("occupancy: optimizer stopped early at a near-stationary point",
			zap.String("status", result.Status.String()),
		)
	}

	cov, err := covariance(lik, result.X)
	if err != nil {
		return nil, err
	}

	fitted := &Fitted{
		OccIntercept:   result.X[0],
		OccSlope:       result.X[1],
		DetIntercept:   result.X[2],
		OccInterceptSE: stdErr(cov, 0),
		OccSlopeSE:     stdErr(cov, 1),
		DetInterceptSE: stdErr(cov, 2),
		DetectionProb:  logistic(result.X[2]),
		LogLikelihood:  -result.F,
		Sites:          len(lik.depth),
		cov:            cov,
	}

	zap.L().Info("occupancy: model fitted",
		zap.Int("sites", fitted.Sites),
		zap.Float64("occ_intercept", fitted.OccIntercept),
		zap.Float64("occ_slope", fitted.OccSlope),
		zap.Float64("detection_prob", fitted.DetectionProb),
		zap.Float64("log_likelihood", fitted.LogLikelihood),
		zap.Int("iterations", result.Stats.MajorIterations),
	)
	return fitted, nil
}

// buildLikelihood validates histories, applies exclusions, and flattens the
// data for the optimizer.
func buildLikelihood(histories []model.DetectionHistory, exclude []string) (*likelihood, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	matched := make(map[string]bool, len(exclude))
	lik := &likelihood{}
	totalDetections := 0
	for _, h := range histories {
		if excluded[h.PoolID] {
			matched[h.PoolID] = true
			continue
		}
		v := h.Visits()
		if v == 0 {
			// No visit conducted: the history carries no information.
			zap.L().Warn("occupancy: site with no conducted visits dropped", zap.String("pool_id", h.PoolID))
			continue
		}
		d := h.Detections()
		totalDetections += d

		lik.depth = append(lik.depth, h.Depth)
		lik.detections = append(lik.detections, float64(d))
		lik.visits = append(lik.visits, float64(v))
	}

	for _, id := range exclude {
		if !matched[id] {
			zap.L().Warn("occupancy: excluded site not present in detection table", zap.String("pool_id", id))
		}
	}

	if len(lik.depth) == 0 {
		return nil, eris.New("occupancy: no usable detection histories after exclusions")
	}
	if totalDetections == 0 {
		return nil, eris.New("occupancy: zero detections across all histories, model is not identifiable")
	}
	return lik, nil
}

// negLogLik is the negative joint log-likelihood at params
// [occ intercept, occ slope, det intercept].
func (l *likelihood) negLogLik(params []float64) float64 {
	p := logistic(params[2])
	q := 1 - p

	var ll float64
	for i, x := range l.depth {
		psi := logistic(params[0] + params[1]*x)
		d := l.detections[i]
		v := l.visits[i]
		if d > 0 {
			ll += math.Log(clampProb(psi)) + d*math.Log(clampProb(p)) + (v-d)*math.Log(clampProb(q))
		} else {
			ll += math.Log(clampProb(1 - psi + psi*math.Pow(q, v)))
		}
	}
	return -ll
}

// negGrad writes the gradient of negLogLik into dst.
func (l *likelihood) negGrad(dst, params []float64) {
	p := logistic(params[2])
	q := 1 - p

	var g0, g1, ga float64
	for i, x := range l.depth {
		psi := logistic(params[0] + params[1]*x)
		d := l.detections[i]
		v := l.visits[i]
		if d > 0 {
			// d log(psi)/d eta = 1 - psi.
			g0 += 1 - psi
			g1 += (1 - psi) * x
			// d/d alpha of d*log(p) + (v-d)*log(q), with dp/dalpha = p*q.
			ga += d*q - (v-d)*p
		} else {
			qv := math.Pow(q, v)
			mix := clampProb(1 - psi + psi*qv)
			g0 += -psi * (1 - psi) * (1 - qv) / mix
			g1 += -psi * (1 - psi) * (1 - qv) / mix * x
			ga += -psi * v * p * qv / mix
		}
	}
	dst[0] = -g0
	dst[1] = -g1
	dst[2] = -ga
}

// stdErr reads a diagonal entry of the covariance matrix as a standard
// error. An ill-conditioned information matrix can leave a non-positive or
// non-finite diagonal; report zero instead of propagating a NaN.
func stdErr(cov *mat.Dense, i int) float64 {
	v := cov.At(i, i)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// nearStationary reports whether the gradient infinity norm at x is small
// enough to treat x as an optimum.
func nearStationary(l *likelihood, x []float64) bool {
	grad := make([]float64, nParams)
	l.negGrad(grad, x)
	for _, g := range grad {
		if math.Abs(g) > 1e-3 {
			return false
		}
	}
	return true
}

// covariance inverts the observed information matrix at the optimum. The
// Hessian is taken by central differences of the analytic gradient.
func covariance(lik *likelihood, x []float64) (*mat.Dense, error) {
	hess := mat.NewDense(nParams, nParams, nil)
	grad := make([]float64, nParams)
	plus := make([]float64, nParams)
	minus := make([]float64, nParams)

	for i := 0; i < nParams; i++ {
		h := 1e-6 * (1 + math.Abs(x[i]))
		copy(plus, x)
		copy(minus, x)
		plus[i] += h
		minus[i] -= h

		lik.negGrad(grad, plus)
		for j := 0; j < nParams; j++ {
			hess.Set(i, j, grad[j])
		}
		lik.negGrad(grad, minus)
		for j := 0; j < nParams; j++ {
			hess.Set(i, j, (hess.At(i, j)-grad[j])/(2*h))
		}
	}

	// Symmetrize to wash out finite-difference asymmetry.
	for i := 0; i < nParams; i++ {
		for j := i + 1; j < nParams; j++ {
			v := (hess.At(i, j) + hess.At(j, i)) / 2
			hess.Set(i, j, v)
			hess.Set(j, i, v)
		}
	}

	cov := mat.NewDense(nParams, nParams, nil)
	if err := cov.Inverse(hess); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, eris.Wrap(err, "occupancy: information matrix is singular, standard errors unavailable")
		}
		zap.L().Warn("occupancy: information matrix is ill-conditioned, standard errors are unstable")
	}
	return cov, nil
}

// Predict maps a covariate value to predicted occupancy probability with a
// 95% confidence interval via the delta method on the link scale.
func (f *Fitted) Predict(depth float64) model.Prediction {
	eta := f.OccIntercept + f.OccSlope*depth

	// Var(eta) = g' Cov g with g = (1, depth, 0).
	variance := f.cov.At(0, 0) +
		2*depth*f.cov.At(0, 1) +
		depth*depth*f.cov.At(1, 1)
	se := 0.0
	if variance > 0 {
		se = math.Sqrt(variance)
	}

	z := distuv.UnitNormal.Quantile(0.975)
	return model.Prediction{
		Psi:   logistic(eta),
		Lower: logistic(eta - z*se),
		Upper: logistic(eta + z*se),
	}
}

// Summary returns the reportable fit summary.
func (f *Fitted) Summary() model.FitSummary {
	return model.FitSummary{
		OccIntercept:   f.OccIntercept,
		OccInterceptSE: f.OccInterceptSE,
		OccSlope:       f.OccSlope,
		OccSlopeSE:     f.OccSlopeSE,
		DetIntercept:   f.DetIntercept,
		DetInterceptSE: f.DetInterceptSE,
		DetectionProb:  f.DetectionProb,
		LogLikelihood:  f.LogLikelihood,
		Sites:          f.Sites,
	}
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// clampProb keeps probabilities strictly inside (0, 1) so logs and
// divisions stay finite.
func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
