package inference

import (
	"fmt"
	"math"
)

// Constants of the adaptive scale-factor rule: the next factor is placed at
// 1 + shiftFactor/|c| where c is the currently fitted decay rate, a choice
// that approximately minimizes the variance of the asymptote estimate for an
// exponential decay.
const (
	adaShiftFactor = 1.27846
	adaEpsilon     = 1e-9
)

// DefaultMaxScaleFactor caps adaptively chosen scale factors.
const DefaultMaxScaleFactor = 6.0

// AdaExpFactory adaptively extrapolates under the exponential model
// y ≈ a + b·exp(-c·λ): each new scale factor is chosen from the fit over
// everything recorded so far, which makes execution strictly sequential.
type AdaExpFactory struct {
	stack

	steps          int
	secondFactor   float64
	asymptote      *float64
	avoidLog       bool
	maxScaleFactor float64

	// history keeps the intermediate fits made while choosing scale
	// factors, for post-run inspection.
	history []Diagnostics
}

// AdaExpOption configures an AdaExpFactory.
type AdaExpOption func(*adaExpConfig)

type adaExpConfig struct {
	secondFactor   float64
	asymptote      *float64
	avoidLog       bool
	maxScaleFactor float64
}

// WithSecondFactor sets the second probed scale factor (the first is always
// 1); further factors are chosen adaptively. Default 2.
func WithSecondFactor(s float64) AdaExpOption {
	return func(cfg *adaExpConfig) { cfg.secondFactor = s }
}

// WithAdaAsymptote supplies the known infinite-noise limit.
func WithAdaAsymptote(a float64) AdaExpOption {
	return func(cfg *adaExpConfig) { cfg.asymptote = &a }
}

// WithAdaAvoidLog forces the nonlinear fit even with a known asymptote.
func WithAdaAvoidLog() AdaExpOption {
	return func(cfg *adaExpConfig) { cfg.avoidLog = true }
}

// WithMaxScaleFactor caps the adaptively chosen scale factors.
func WithMaxScaleFactor(m float64) AdaExpOption {
	return func(cfg *adaExpConfig) { cfg.maxScaleFactor = m }
}

// NewAdaExpFactory builds an adaptive exponential factory running for the
// given number of steps: at least 3, or 4 when the asymptote is unknown.
func NewAdaExpFactory(steps int, opts ...AdaExpOption) (*AdaExpFactory, error) {
	cfg := adaExpConfig{secondFactor: 2, maxScaleFactor: DefaultMaxScaleFactor}
	for _, opt := range opts {
		opt(&cfg)
	}
	minSteps := 3
	if cfg.asymptote == nil {
		minSteps = 4
	}
	if steps < minSteps {
		return nil, fmt.Errorf("adaptive exponential extrapolation needs at least %d steps, got %d", minSteps, steps)
	}
	if cfg.secondFactor <= 1 {
		return nil, fmt.Errorf("the second scale factor must be strictly larger than 1, got %g", cfg.secondFactor)
	}
	if cfg.maxScaleFactor <= 1 {
		return nil, fmt.Errorf("the maximum scale factor must be strictly larger than 1, got %g", cfg.maxScaleFactor)
	}
	minDistinct := 3
	if cfg.asymptote == nil {
		minDistinct = 4
	}
	return &AdaExpFactory{
		stack:          stack{minDistinct: minDistinct},
		steps:          steps,
		secondFactor:   cfg.secondFactor,
		asymptote:      cfg.asymptote,
		avoidLog:       cfg.avoidLog,
		maxScaleFactor: cfg.maxScaleFactor,
	}, nil
}

// Next chooses the scale factor for the coming round from everything
// recorded so far.
func (f *AdaExpFactory) Next() (float64, error) {
	switch n := len(f.obs); {
	case n == 0:
		return 1, nil
	case n == 1:
		return f.secondFactor, nil
	case n == 2 && f.asymptote == nil:
		return 2 * f.secondFactor, nil
	}

	// intermediate fit over the current data to read off the decay rate
	xs, ys := f.xy()
	_, params, err := ExtrapolateExp(xs, ys, f.asymptote, f.avoidLog)
	if err != nil {
		return 0, err
	}
	f.history = append(f.history, Diagnostics{Params: params})

	logLinearized := f.asymptote != nil && !f.avoidLog
	rate := expDecayRate(params, logLinearized)
	next := 1 + adaShiftFactor/(math.Abs(rate)+adaEpsilon)
	return math.Min(next, f.maxScaleFactor), nil
}

func (f *AdaExpFactory) Record(obs Observation) error { return f.record(obs) }

// Converged reports whether the step budget has been spent.
func (f *AdaExpFactory) Converged() bool { return len(f.obs) >= f.steps }

func (f *AdaExpFactory) Reduce() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	xs, ys := f.xy()
	zero, params, err := ExtrapolateExp(xs, ys, f.asymptote, f.avoidLog)
	if err != nil {
		return 0, err
	}
	logLinearized := f.asymptote != nil && !f.avoidLog
	diag := Diagnostics{Params: params, RSS: expRSS(params, logLinearized, xs, ys)}
	f.history = append(f.history, diag)
	f.seal(zero, diag)
	return zero, nil
}

func (f *AdaExpFactory) ZeroNoiseValue() (float64, error) {
	if f.reduced {
		return f.zero, nil
	}
	return f.Reduce()
}

func (f *AdaExpFactory) Observations() []Observation { return f.observations() }

func (f *AdaExpFactory) Diagnostics() Diagnostics { return f.diagnostics() }

// History returns the intermediate fits recorded while the factory chose
// its scale factors.
func (f *AdaExpFactory) History() []Diagnostics {
	out := make([]Diagnostics, len(f.history))
	copy(out, f.history)
	return out
}

func (f *AdaExpFactory) State() State { return f.state() }

func (f *AdaExpFactory) Reset() {
	f.reset()
	f.history = nil
}
