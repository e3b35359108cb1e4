package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// polyFit computes the least-squares coefficients of a degree-deg polynomial
// through (xs, ys), lowest power first, optionally weighted per point. A
// rank-deficient or badly conditioned Vandermonde system is surfaced as
// ErrExtrapolation rather than solved to garbage.
func polyFit(xs, ys, weights []float64, deg int) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d scale factors for %d values", ErrExtrapolation, len(xs), len(ys))
	}
	if len(xs) < deg+1 {
		return nil, fmt.Errorf("%w: degree %d needs %d points, have %d", ErrTooFewPoints, deg, deg+1, len(xs))
	}

	a := mat.NewDense(len(xs), deg+1, nil)
	b := mat.NewDense(len(xs), 1, nil)
	for i, x := range xs {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		pow := 1.0
		for j := 0; j <= deg; j++ {
			a.Set(i, j, w*pow)
			pow *= x
		}
		b.Set(i, 0, w*ys[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return nil, fmt.Errorf("%w: ill-conditioned polynomial fit: %v", ErrExtrapolation, err)
	}

	coeffs := make([]float64, deg+1)
	for j := range coeffs {
		c := sol.At(j, 0)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: singular polynomial fit", ErrExtrapolation)
		}
		coeffs[j] = c
	}
	return coeffs, nil
}

// polyVal evaluates a lowest-power-first coefficient slice at x.
func polyVal(coeffs []float64, x float64) float64 {
	v := 0.0
	for j := len(coeffs) - 1; j >= 0; j-- {
		v = v*x + coeffs[j]
	}
	return v
}

// curveFit minimizes the residual sum of squares of model over the data,
// starting from p0, using a derivative-free Nelder-Mead search. A fit that
// does not converge to a finite optimum is an ErrExtrapolation.
func curveFit(model func(x float64, params []float64) float64, xs, ys, p0 []float64) ([]float64, error) {
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			var rss float64
			for i, x := range xs {
				d := ys[i] - model(x, params)
				rss += d * d
			}
			return rss
		},
	}

	init := make([]float64, len(p0))
	copy(init, p0)
	result, err := optimize.Minimize(problem, init, &optimize.Settings{Converger: &optimize.FunctionConverge{
		Absolute:   1e-12,
		Iterations: 200,
	}}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("%w: nonlinear fit did not converge: %v", ErrExtrapolation, err)
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, fmt.Errorf("%w: nonlinear fit diverged", ErrExtrapolation)
	}
	return result.X, nil
}

// residualSumOfSquares is the fit-quality diagnostic attached to a reduced
// factory.
func residualSumOfSquares(model func(x float64) float64, xs, ys []float64) float64 {
	var rss float64
	for i, x := range xs {
		d := ys[i] - model(x)
		rss += d * d
	}
	return rss
}

// sign of the exponential's direction, deduced from the slope of a linear
// pre-fit: decaying data gets +1, growing data -1.
func deduceSign(xs, ys []float64) (float64, error) {
	coeffs, err := polyFit(xs, ys, nil, 1)
	if err != nil {
		return 0, err
	}
	if coeffs[1] > 0 {
		return -1, nil
	}
	return 1, nil
}
