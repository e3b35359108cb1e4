package inference

import (
	"fmt"
	"math"
)

// logShiftEps regularizes log(sign·(y - asymptote)) when the shifted value
// is close to zero or negative.
const logShiftEps = 1e-6

// ExtrapolatePoly fits a degree-order polynomial through (scaleFactors,
// values) by least squares and returns its value at zero together with the
// coefficients, lowest power first.
func ExtrapolatePoly(scaleFactors, values []float64, order int) (float64, []float64, error) {
	coeffs, err := polyFit(scaleFactors, values, nil, order)
	if err != nil {
		return 0, nil, err
	}
	return coeffs[0], coeffs, nil
}

// ExtrapolateLinear is ExtrapolatePoly at order 1.
func ExtrapolateLinear(scaleFactors, values []float64) (float64, []float64, error) {
	return ExtrapolatePoly(scaleFactors, values, 1)
}

// ExtrapolateRichardson interpolates an exact polynomial through all points
// (degree = number of distinct scale factors - 1) and evaluates it at zero.
func ExtrapolateRichardson(scaleFactors, values []float64) (float64, []float64, error) {
	distinct := make(map[float64]struct{}, len(scaleFactors))
	for _, s := range scaleFactors {
		distinct[s] = struct{}{}
	}
	return ExtrapolatePoly(scaleFactors, values, len(distinct)-1)
}

// ExtrapolateExp assumes y(λ) = a + b·exp(-c·λ) with c > 0; it is
// ExtrapolatePolyExp with a degree-1 exponent.
func ExtrapolateExp(scaleFactors, values []float64, asymptote *float64, avoidLog bool) (float64, []float64, error) {
	return ExtrapolatePolyExp(scaleFactors, values, 1, asymptote, avoidLog)
}

// ExtrapolatePolyExp assumes y(λ) = a + sign·exp(z(λ)) with z a polynomial
// of the given order and sign deduced from the data.
//
// With an unknown asymptote, or with AvoidLog, the model is solved by a
// nonlinear search; parameters come back as [a, b, z₁, …, z_order] for
// y = a + b·exp(λ·z(λ)). With a known asymptote the model is linearized as
// z(λ) = log(sign·(y-a)) and fitted by weighted least squares; parameters
// come back as [a, sign, z₀, z₁, …, z_order].
func ExtrapolatePolyExp(scaleFactors, values []float64, order int, asymptote *float64, avoidLog bool) (float64, []float64, error) {
	shift := 1
	if asymptote == nil {
		shift = 2
	}
	if len(scaleFactors) != len(values) || len(scaleFactors) < 2 {
		return 0, nil, fmt.Errorf("%w: at least two data points are necessary", ErrTooFewPoints)
	}
	if order > len(scaleFactors)-shift {
		return 0, nil, fmt.Errorf("%w: exponent order %d needs %d points, have %d",
			ErrTooFewPoints, order, order+shift, len(scaleFactors))
	}

	sign, err := deduceSign(scaleFactors, values)
	if err != nil {
		return 0, nil, err
	}

	// unknown asymptote: fit a, b and the exponent polynomial together
	if asymptote == nil {
		p0 := make([]float64, order+2)
		p0[1] = sign
		p0[2] = -1
		model := func(x float64, p []float64) float64 {
			return p[0] + p[1]*math.Exp(x*polyVal(p[2:], x))
		}
		params, err := curveFit(model, scaleFactors, values, p0)
		if err != nil {
			return 0, nil, err
		}
		// the zero-noise limit is model(0) = a + b
		return params[0] + params[1], params, nil
	}

	a := *asymptote

	// known asymptote, nonlinear variant requested
	if avoidLog {
		p0 := make([]float64, order+1)
		p0[0] = sign
		p0[1] = -1
		model := func(x float64, p []float64) float64 {
			return a + p[0]*math.Exp(x*polyVal(p[1:], x))
		}
		fitted, err := curveFit(model, scaleFactors, values, p0)
		if err != nil {
			return 0, nil, err
		}
		params := append([]float64{a}, fitted...)
		return a + fitted[0], params, nil
	}

	// known asymptote: log-linearize. Weights compensate for the error
	// propagation of the log transform.
	shifted := make([]float64, len(values))
	zs := make([]float64, len(values))
	weights := make([]float64, len(values))
	for i, y := range values {
		shifted[i] = math.Max(sign*(y-a), logShiftEps)
		zs[i] = math.Log(shifted[i])
		weights[i] = math.Sqrt(math.Abs(shifted[i]))
	}
	zCoeffs, err := polyFit(scaleFactors, zs, weights, order)
	if err != nil {
		return 0, nil, err
	}
	zero := a + sign*math.Exp(zCoeffs[0])
	params := append([]float64{a, sign}, zCoeffs...)
	return zero, params, nil
}

// expDecayRate extracts the coefficient of λ in the exponent from the
// parameter layouts documented on ExtrapolatePolyExp.
func expDecayRate(params []float64, logLinearized bool) float64 {
	if logLinearized {
		return params[3]
	}
	return params[2]
}
