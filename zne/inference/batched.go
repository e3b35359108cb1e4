package inference

import (
	"fmt"
	"math"
)

// batched holds the fixed scale-factor plan common to all non-adaptive
// factories.
type batched struct {
	stack
	plan   []float64
	cursor int
}

func newBatched(scaleFactors []float64, minDistinct int) batched {
	plan := make([]float64, len(scaleFactors))
	copy(plan, scaleFactors)
	return batched{stack: stack{minDistinct: minDistinct}, plan: plan}
}

// ScaleFactors returns the planned scale factors; observations may be
// recorded against them in any order.
func (b *batched) ScaleFactors() []float64 {
	out := make([]float64, len(b.plan))
	copy(out, b.plan)
	return out
}

func (b *batched) Next() (float64, error) {
	if b.cursor >= len(b.plan) {
		return 0, ErrPlanExhausted
	}
	s := b.plan[b.cursor]
	b.cursor++
	return s, nil
}

func (b *batched) Record(obs Observation) error { return b.record(obs) }

func (b *batched) Converged() bool { return len(b.obs) >= len(b.plan) }

func (b *batched) Observations() []Observation { return b.observations() }

func (b *batched) Diagnostics() Diagnostics { return b.diagnostics() }

func (b *batched) State() State { return b.state() }

func (b *batched) Reset() {
	b.reset()
	b.cursor = 0
}

// zeroNoise returns the cached estimate or computes it through reduce.
func (b *batched) zeroNoise(reduce func() (float64, error)) (float64, error) {
	if b.reduced {
		return b.zero, nil
	}
	return reduce()
}

// LinearFactory extrapolates with the model y ≈ a + b·λ; the zero-noise
// estimate is a. More than two distinct scale factors turn the exact solve
// into least squares.
type LinearFactory struct {
	batched
}

// NewLinearFactory builds a linear factory over the given scale factors.
func NewLinearFactory(scaleFactors []float64) (*LinearFactory, error) {
	if err := validScaleFactors(scaleFactors, 2); err != nil {
		return nil, err
	}
	return &LinearFactory{batched: newBatched(scaleFactors, 2)}, nil
}

func (f *LinearFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	if f.distinct() < 2 {
		return 0, ErrTooFewPoints
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolatePoly(xs, ys, 1)
	if err != nil {
		return 0, err
	}
	f.seal(zero, Diagnostics{Params: params, RSS: residualSumOfSquares(func(x float64) float64 { return polyVal(params, x) }, xs, ys)})
	return zero, nil
}

func (f *LinearFactory) ZeroNoiseValue() (float64, error) { return f.zeroNoise(f.Reduce) }

// PolyFactory fits a least-squares polynomial of fixed order; the zero-noise
// estimate is its constant term.
type PolyFactory struct {
	batched
	order int
}

// NewPolyFactory builds a degree-order polynomial factory. The order cannot
// exceed len(scaleFactors)-1.
func NewPolyFactory(scaleFactors []float64, order int) (*PolyFactory, error) {
	if order < 0 {
		return nil, fmt.Errorf("polynomial order must be non-negative, got %d", order)
	}
	if err := validScaleFactors(scaleFactors, 2); err != nil {
		return nil, err
	}
	if order > len(scaleFactors)-1 {
		return nil, fmt.Errorf("order %d exceeds len(scaleFactors)-1 = %d", order, len(scaleFactors)-1)
	}
	return &PolyFactory{batched: newBatched(scaleFactors, order+1), order: order}, nil
}

func (f *PolyFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	if f.distinct() < f.order+1 {
		return 0, fmt.Errorf("%w: order %d needs %d distinct scale factors, have %d",
			ErrTooFewPoints, f.order, f.order+1, f.distinct())
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolatePoly(xs, ys, f.order)
	if err != nil {
		return 0, err
	}
	f.seal(zero, Diagnostics{Params: params, RSS: residualSumOfSquares(func(x float64) float64 { return polyVal(params, x) }, xs, ys)})
	return zero, nil
}

func (f *PolyFactory) ZeroNoiseValue() (float64, error) { return f.zeroNoise(f.Reduce) }

// RichardsonFactory interpolates an exact polynomial through all recorded
// points (degree = number of distinct scale factors - 1) and evaluates it at
// zero; equivalent to Lagrange interpolation at λ=0.
type RichardsonFactory struct {
	batched
}

// NewRichardsonFactory builds a Richardson extrapolation factory.
func NewRichardsonFactory(scaleFactors []float64) (*RichardsonFactory, error) {
	if err := validScaleFactors(scaleFactors, 2); err != nil {
		return nil, err
	}
	return &RichardsonFactory{batched: newBatched(scaleFactors, 2)}, nil
}

func (f *RichardsonFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	if f.distinct() < 2 {
		return 0, ErrTooFewPoints
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolateRichardson(xs, ys)
	if err != nil {
		return 0, err
	}
	f.seal(zero, Diagnostics{Params: params, RSS: residualSumOfSquares(func(x float64) float64 { return polyVal(params, x) }, xs, ys)})
	return zero, nil
}

func (f *RichardsonFactory) ZeroNoiseValue() (float64, error) { return f.zeroNoise(f.Reduce) }

// ExpFactory assumes the exponential model y ≈ a + b·exp(-c·λ). With a known
// asymptote a the model is log-linearized; otherwise a is a third fit
// parameter solved with a nonlinear search (requiring ≥3 points).
type ExpFactory struct {
	batched
	asymptote *float64
	avoidLog  bool
}

// ExpOption configures exponential-family factories.
type ExpOption func(*expConfig)

type expConfig struct {
	asymptote *float64
	avoidLog  bool
}

// WithAsymptote supplies the known infinite-noise limit y(λ→∞).
func WithAsymptote(a float64) ExpOption {
	return func(cfg *expConfig) { cfg.asymptote = &a }
}

// AvoidLog forces a nonlinear fit even when the asymptote is known, instead
// of the default logarithmic linearization.
func AvoidLog() ExpOption {
	return func(cfg *expConfig) { cfg.avoidLog = true }
}

// NewExpFactory builds an exponential extrapolation factory.
func NewExpFactory(scaleFactors []float64, opts ...ExpOption) (*ExpFactory, error) {
	var cfg expConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	minDistinct := 2
	if cfg.asymptote == nil {
		minDistinct = 3
	}
	if err := validScaleFactors(scaleFactors, minDistinct); err != nil {
		return nil, err
	}
	return &ExpFactory{
		batched:   newBatched(scaleFactors, minDistinct),
		asymptote: cfg.asymptote,
		avoidLog:  cfg.avoidLog,
	}, nil
}

func (f *ExpFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolateExp(xs, ys, f.asymptote, f.avoidLog)
	if err != nil {
		return 0, err
	}
	f.seal(zero, Diagnostics{Params: params, RSS: expRSS(params, f.asymptote != nil && !f.avoidLog, xs, ys)})
	return zero, nil
}

func (f *ExpFactory) ZeroNoiseValue() (float64, error) { return f.zeroNoise(f.Reduce) }

// PolyExpFactory assumes y ≈ a + sign·exp(z(λ)) with z a polynomial of the
// given order in the exponent; the most flexible and the most prone to
// overfitting with few points.
type PolyExpFactory struct {
	batched
	order     int
	asymptote *float64
	avoidLog  bool
}

// NewPolyExpFactory builds a poly-exponential extrapolation factory.
func NewPolyExpFactory(scaleFactors []float64, order int, opts ...ExpOption) (*PolyExpFactory, error) {
	if order < 1 {
		return nil, fmt.Errorf("poly-exponential order must be at least 1, got %d", order)
	}
	var cfg expConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	shift := 1
	if cfg.asymptote == nil {
		shift = 2
	}
	minDistinct := order + shift
	if err := validScaleFactors(scaleFactors, minDistinct); err != nil {
		return nil, err
	}
	return &PolyExpFactory{
		batched:   newBatched(scaleFactors, minDistinct),
		order:     order,
		asymptote: cfg.asymptote,
		avoidLog:  cfg.avoidLog,
	}, nil
}

func (f *PolyExpFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolatePolyExp(xs, ys, f.order, f.asymptote, f.avoidLog)
	if err != nil {
		return 0, err
	}
	f.seal(zero, Diagnostics{Params: params, RSS: expRSS(params, f.asymptote != nil && !f.avoidLog, xs, ys)})
	return zero, nil
}

func (f *PolyExpFactory) ZeroNoiseValue() (float64, error) { return f.zeroNoise(f.Reduce) }

// expRSS evaluates the residual sum of squares of an (poly-)exponential fit
// given its parameter layout.
func expRSS(params []float64, logLinearized bool, xs, ys []float64) float64 {
	model := func(x float64) float64 { return evalExpModel(params, logLinearized, x) }
	return residualSumOfSquares(model, xs, ys)
}

// evalExpModel evaluates a + b·exp(x·z(x)) from the parameter layout
// produced by the extrapolation helpers: [a, b, z₁, z₂, …] when the
// asymptote was fitted or supplied with AvoidLog, [a, z₀, z₁, …] for the
// log-linearized form.
func evalExpModel(params []float64, logLinearized bool, x float64) float64 {
	if logLinearized {
		// params = [asymptote, sign, z₀, z₁, ...]; y = a + sign·exp(z(x))
		a, sign := params[0], params[1]
		return a + sign*math.Exp(polyVal(params[2:], x))
	}
	// params = [a, b, z₁, ...]; y = a + b·exp(x·z(x))
	a, b := params[0], params[1]
	return a + b*math.Exp(x*polyVal(params[2:], x))
}
