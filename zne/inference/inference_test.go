package inference

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, f Factory, xs, ys []float64) {
	t.Helper()
	for i := range xs {
		require.NoError(t, f.Record(Observation{ScaleFactor: xs[i], Value: ys[i], NumAveraged: 1}))
	}
}

func TestLinearFactoryExactRecovery(t *testing.T) {
	assert := require.New(t)

	f, err := NewLinearFactory([]float64{1, 2, 3})
	assert.NoError(err)

	// y = 0.3 + 0.2λ must be recovered exactly
	record(t, f, []float64{1, 2, 3}, []float64{0.5, 0.7, 0.9})
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.3, zero, 1e-9)

	diag := f.Diagnostics()
	assert.Len(diag.Params, 2)
	assert.InDelta(0.3, diag.Params[0], 1e-9)
	assert.InDelta(0.2, diag.Params[1], 1e-9)
	assert.InDelta(0, diag.RSS, 1e-12)
}

func TestLinearFactoryOverdetermined(t *testing.T) {
	assert := require.New(t)

	f, err := NewLinearFactory([]float64{1, 1, 3, 3})
	assert.NoError(err)
	// duplicate scale factors enter the fit with their multiplicity
	record(t, f, []float64{1, 1, 3, 3}, []float64{1.0, 1.2, 2.0, 2.2})
	zero, err := f.ZeroNoiseValue()
	assert.NoError(err)
	assert.InDelta(0.6, zero, 1e-9)
}

func TestRichardsonEqualsMaxOrderPoly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("Richardson reduces like an exact-degree polynomial fit", prop.ForAll(
		func(y1, y2, y3 float64) bool {
			xs := []float64{1, 2, 3}
			ys := []float64{y1, y2, y3}

			r, err := NewRichardsonFactory(xs)
			if err != nil {
				return false
			}
			p, err := NewPolyFactory(xs, len(xs)-1)
			if err != nil {
				return false
			}
			for i := range xs {
				if r.Record(Observation{ScaleFactor: xs[i], Value: ys[i]}) != nil ||
					p.Record(Observation{ScaleFactor: xs[i], Value: ys[i]}) != nil {
					return false
				}
			}
			rz, err := r.Reduce()
			if err != nil {
				return false
			}
			pz, err := p.Reduce()
			if err != nil {
				return false
			}
			return math.Abs(rz-pz) < 1e-6
		},
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRichardsonInterpolates(t *testing.T) {
	assert := require.New(t)

	// quadratic data through three points is recovered exactly at zero
	f, err := NewRichardsonFactory([]float64{1, 2, 3})
	assert.NoError(err)
	quad := func(x float64) float64 { return 1.0 - 0.1*x + 0.02*x*x }
	record(t, f, []float64{1, 2, 3}, []float64{quad(1), quad(2), quad(3)})
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(1.0, zero, 1e-9)
}

func TestTooFewPoints(t *testing.T) {
	assert := require.New(t)

	f, err := NewRichardsonFactory([]float64{1, 2})
	assert.NoError(err)
	// two observations at the same scale factor are one distinct point
	record(t, f, []float64{1, 1}, []float64{0.9, 0.91})
	_, err = f.Reduce()
	assert.ErrorIs(err, ErrTooFewPoints)
	assert.ErrorIs(err, ErrExtrapolation)

	p, err := NewPolyFactory([]float64{1, 2, 3}, 2)
	assert.NoError(err)
	record(t, p, []float64{1, 2}, []float64{0.9, 0.8})
	_, err = p.Reduce()
	assert.ErrorIs(err, ErrTooFewPoints)
}

func TestFactoryConstructionValidation(t *testing.T) {
	assert := require.New(t)

	_, err := NewLinearFactory([]float64{1})
	assert.Error(err)
	_, err = NewLinearFactory([]float64{0.5, 2})
	assert.Error(err)
	_, err = NewPolyFactory([]float64{1, 2}, -1)
	assert.Error(err)
	_, err = NewPolyFactory([]float64{1, 2}, 2)
	assert.Error(err)
	_, err = NewPolyExpFactory([]float64{1, 2}, 0)
	assert.Error(err)
	// unknown asymptote needs order+2 scale factors
	_, err = NewPolyExpFactory([]float64{1, 2}, 1)
	assert.Error(err)
}

func TestFactoryLifecycle(t *testing.T) {
	assert := require.New(t)

	f, err := NewLinearFactory([]float64{1, 2, 3})
	assert.NoError(err)
	assert.Equal(Collecting, f.State())

	// the plan hands out factors in order, then runs dry
	for _, want := range []float64{1, 2, 3} {
		got, err := f.Next()
		assert.NoError(err)
		assert.Equal(want, got)
	}
	_, err = f.Next()
	assert.ErrorIs(err, ErrPlanExhausted)

	assert.False(f.Converged())
	record(t, f, []float64{1, 2}, []float64{0.5, 0.7})
	assert.Equal(Ready, f.State())
	assert.False(f.Converged())
	record(t, f, []float64{3}, []float64{0.9})
	assert.True(f.Converged())

	_, err = f.Reduce()
	assert.NoError(err)
	assert.Equal(Reduced, f.State())

	// a reduced factory rejects new data and keeps its cached value
	assert.ErrorIs(f.Record(Observation{ScaleFactor: 4, Value: 1}), ErrFactoryReduced)
	zero, err := f.ZeroNoiseValue()
	assert.NoError(err)
	assert.InDelta(0.3, zero, 1e-9)

	// Reset clears everything
	f.Reset()
	assert.Equal(Collecting, f.State())
	assert.Empty(f.Observations())
	got, err := f.Next()
	assert.NoError(err)
	assert.Equal(1.0, got)
}

func TestObservationsSorted(t *testing.T) {
	assert := require.New(t)

	f, err := NewLinearFactory([]float64{1, 2, 3})
	assert.NoError(err)
	record(t, f, []float64{3, 1, 2}, []float64{0.9, 0.5, 0.7})
	obs := f.Observations()
	assert.Equal([]float64{1, 2, 3}, []float64{obs[0].ScaleFactor, obs[1].ScaleFactor, obs[2].ScaleFactor})
}

func expData(a, b, c float64, xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = a + b*math.Exp(-c*x)
	}
	return ys
}

func TestExpFactoryKnownAsymptote(t *testing.T) {
	assert := require.New(t)

	xs := []float64{1, 2, 3}
	ys := expData(0.5, 0.3, 0.7, xs)

	f, err := NewExpFactory(xs, WithAsymptote(0.5))
	assert.NoError(err)
	record(t, f, xs, ys)
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.8, zero, 1e-6)

	// decay rate is recoverable from the fitted parameters
	diag := f.Diagnostics()
	assert.InDelta(-0.7, expDecayRate(diag.Params, true), 1e-6)
}

func TestExpFactoryKnownAsymptoteAvoidLog(t *testing.T) {
	assert := require.New(t)

	xs := []float64{1, 2, 3, 4}
	ys := expData(0.5, 0.3, 0.7, xs)

	f, err := NewExpFactory(xs, WithAsymptote(0.5), AvoidLog())
	assert.NoError(err)
	record(t, f, xs, ys)
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.8, zero, 1e-3)
}

func TestExpFactoryUnknownAsymptote(t *testing.T) {
	assert := require.New(t)

	xs := []float64{1, 2, 3, 4, 5}
	ys := expData(0.5, 0.3, 0.7, xs)

	f, err := NewExpFactory(xs)
	assert.NoError(err)
	record(t, f, xs, ys)
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.8, zero, 0.05)
}

func TestExpFactoryGrowingData(t *testing.T) {
	assert := require.New(t)

	// growing exponential: sign deduction must flip
	xs := []float64{1, 2, 3}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 0.5 - 0.3*math.Exp(-0.7*x)
	}
	f, err := NewExpFactory(xs, WithAsymptote(0.5))
	assert.NoError(err)
	record(t, f, xs, ys)
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.2, zero, 1e-6)
}

func TestPolyExpFactory(t *testing.T) {
	assert := require.New(t)

	// quadratic exponent z(λ) = log(0.3) - 0.5λ - 0.05λ²
	xs := []float64{1, 2, 3, 4}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 0.5 + 0.3*math.Exp(-0.5*x-0.05*x*x)
	}
	f, err := NewPolyExpFactory(xs, 2, WithAsymptote(0.5))
	assert.NoError(err)
	record(t, f, xs, ys)
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.8, zero, 1e-6)
}

func TestAdaExpFactoryPlansScaleFactors(t *testing.T) {
	assert := require.New(t)

	f, err := NewAdaExpFactory(4, WithAdaAsymptote(0.5))
	assert.NoError(err)

	model := func(x float64) float64 { return 0.5 + 0.3*math.Exp(-0.7*x) }

	sf, err := f.Next()
	assert.NoError(err)
	assert.Equal(1.0, sf)
	assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))

	sf, err = f.Next()
	assert.NoError(err)
	assert.Equal(2.0, sf)
	assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))

	// from here the rule places factors at 1 + 1.27846/|c|
	sf, err = f.Next()
	assert.NoError(err)
	assert.InDelta(1+adaShiftFactor/0.7, sf, 1e-3)
	assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))

	sf, err = f.Next()
	assert.NoError(err)
	assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))

	assert.True(f.Converged())
	zero, err := f.Reduce()
	assert.NoError(err)
	assert.InDelta(0.8, zero, 1e-6)
	assert.NotEmpty(f.History())
}

func TestAdaExpFactoryUnknownAsymptoteThirdFactor(t *testing.T) {
	assert := require.New(t)

	f, err := NewAdaExpFactory(4)
	assert.NoError(err)

	model := func(x float64) float64 { return 0.5 + 0.3*math.Exp(-0.7*x) }
	for _, want := range []float64{1, 2, 4} {
		sf, err := f.Next()
		assert.NoError(err)
		assert.Equal(want, sf)
		assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))
	}
	assert.False(f.Converged())
}

func TestAdaExpFactoryCapsScaleFactor(t *testing.T) {
	assert := require.New(t)

	// a nearly flat decay pushes the rule far beyond the cap
	f, err := NewAdaExpFactory(4, WithAdaAsymptote(0.5), WithMaxScaleFactor(5))
	assert.NoError(err)

	model := func(x float64) float64 { return 0.5 + 0.3*math.Exp(-0.001*x) }
	for i := 0; i < 2; i++ {
		sf, err := f.Next()
		assert.NoError(err)
		assert.NoError(f.Record(Observation{ScaleFactor: sf, Value: model(sf)}))
	}
	sf, err := f.Next()
	assert.NoError(err)
	assert.Equal(5.0, sf)
}

func TestAdaExpFactoryValidation(t *testing.T) {
	assert := require.New(t)

	_, err := NewAdaExpFactory(2, WithAdaAsymptote(0.5))
	assert.Error(err)
	_, err = NewAdaExpFactory(3) // unknown asymptote needs 4 steps
	assert.Error(err)
	_, err = NewAdaExpFactory(4, WithSecondFactor(1))
	assert.Error(err)
	_, err = NewAdaExpFactory(4, WithMaxScaleFactor(0.5))
	assert.Error(err)
}

func TestExtrapolateHelpers(t *testing.T) {
	assert := require.New(t)

	zero, params, err := ExtrapolateLinear([]float64{1, 3}, []float64{1.0, 2.0})
	assert.NoError(err)
	assert.Len(params, 2)
	assert.InDelta(0.5, zero, 1e-9)

	// Richardson degree follows the distinct count, duplicates ignored
	zero, params, err = ExtrapolateRichardson([]float64{1, 1, 3}, []float64{1.0, 1.0, 2.0})
	assert.NoError(err)
	assert.Len(params, 2)
	assert.InDelta(0.5, zero, 1e-9)

	_, _, err = ExtrapolatePoly([]float64{1}, []float64{1, 2}, 1)
	assert.ErrorIs(err, ErrExtrapolation)
}
