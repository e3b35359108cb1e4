// Package inference implements the extrapolation side of zero-noise
// extrapolation: factories record (scale factor, expectation value)
// observations, plan which scale factor to probe next, fit a parametric
// model to the recorded data and evaluate it at the zero-noise limit.
package inference

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrExtrapolation covers every failure of the extrapolation fit:
	// insufficient distinct data for the chosen model, a singular or
	// ill-conditioned solve, or a nonlinear fit that does not converge. A
	// degenerate estimate is never returned in its place.
	ErrExtrapolation = errors.New("extrapolation failed")

	// ErrTooFewPoints is an ErrExtrapolation for models asked to reduce
	// before enough distinct scale factors were recorded.
	ErrTooFewPoints = fmt.Errorf("%w: not enough distinct scale factors", ErrExtrapolation)

	// ErrFactoryReduced rejects observations recorded into a factory whose
	// zero-noise value was already computed; Reset clears it.
	ErrFactoryReduced = errors.New("factory already reduced; call Reset to record new data")

	// ErrPlanExhausted is returned by Next on a batched factory whose fixed
	// scale factors have all been handed out.
	ErrPlanExhausted = errors.New("all planned scale factors have been consumed")
)

// Observation is one noise-scaled measurement: the scale factor it was taken
// at, the (averaged) expectation value, and how many raw executions were
// averaged into it.
type Observation struct {
	ScaleFactor float64
	Value       float64
	NumAveraged int
}

// State of a factory's collect/fit lifecycle.
type State uint8

const (
	Collecting State = iota // not yet enough distinct scale factors
	Ready                   // a valid fit is possible
	Reduced                 // zero-noise value computed and cached
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Ready:
		return "ready"
	case Reduced:
		return "reduced"
	default:
		return "unknown"
	}
}

// Diagnostics carries fit-quality information for the caller to inspect
// after reduction.
type Diagnostics struct {
	// Params are the fitted model parameters, meaning documented per factory.
	Params []float64
	// RSS is the residual sum of squares of the fit over the recorded data.
	RSS float64
}

// Factory is the extrapolation state machine driven by the orchestrator.
//
// Implementations are not safe for concurrent Record calls; the orchestrator
// serializes recording even when executor dispatch is parallel.
type Factory interface {
	// Next returns the next scale factor to probe. For batched factories
	// this walks the fixed plan; for adaptive factories the answer depends
	// on all previously recorded observations.
	Next() (float64, error)

	// Record appends one observation. Duplicate scale factors are fitted
	// with their multiplicity, never pre-averaged.
	Record(obs Observation) error

	// Converged reports whether the factory has all observations it plans
	// to collect.
	Converged() bool

	// Reduce fits the model, caches and returns the zero-noise estimate,
	// and seals the factory against further recording.
	Reduce() (float64, error)

	// ZeroNoiseValue returns the cached estimate, reducing first if needed.
	ZeroNoiseValue() (float64, error)

	// Observations returns the recorded data in scale-factor order, ties
	// broken by insertion order.
	Observations() []Observation

	// Diagnostics returns fit parameters and residuals after reduction.
	Diagnostics() Diagnostics

	// State returns the lifecycle state.
	State() State

	// Reset clears all recorded data and returns the factory to Collecting.
	Reset()
}

// BatchPlanner is implemented by factories whose scale factors are fixed up
// front; the orchestrator may then dispatch all executions concurrently.
type BatchPlanner interface {
	ScaleFactors() []float64
}

// stack is the append-only observation log shared by all factories. Fit
// parameters stay in each concrete factory; the stack only owns data and
// lifecycle.
type stack struct {
	obs         []Observation
	minDistinct int

	reduced bool
	zero    float64
	diag    Diagnostics
}

func (s *stack) record(o Observation) error {
	if s.reduced {
		return ErrFactoryReduced
	}
	if o.NumAveraged <= 0 {
		o.NumAveraged = 1
	}
	s.obs = append(s.obs, o)
	return nil
}

func (s *stack) reset() {
	s.obs = nil
	s.reduced = false
	s.zero = 0
	s.diag = Diagnostics{}
}

func (s *stack) seal(zero float64, diag Diagnostics) {
	s.zero = zero
	s.diag = diag
	s.reduced = true
}

// xy returns scale factors and values in insertion order.
func (s *stack) xy() (xs, ys []float64) {
	xs = make([]float64, len(s.obs))
	ys = make([]float64, len(s.obs))
	for i, o := range s.obs {
		xs[i] = o.ScaleFactor
		ys[i] = o.Value
	}
	return xs, ys
}

func (s *stack) distinct() int {
	seen := make(map[float64]struct{}, len(s.obs))
	for _, o := range s.obs {
		seen[o.ScaleFactor] = struct{}{}
	}
	return len(seen)
}

func (s *stack) state() State {
	if s.reduced {
		return Reduced
	}
	if s.distinct() >= s.minDistinct {
		return Ready
	}
	return Collecting
}

func (s *stack) observations() []Observation {
	out := make([]Observation, len(s.obs))
	copy(out, s.obs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScaleFactor < out[j].ScaleFactor
	})
	return out
}

func (s *stack) diagnostics() Diagnostics {
	params := make([]float64, len(s.diag.Params))
	copy(params, s.diag.Params)
	return Diagnostics{Params: params, RSS: s.diag.RSS}
}

// validScaleFactors rejects empty or sub-1 plans at construction.
func validScaleFactors(scaleFactors []float64, minimum int) error {
	if len(scaleFactors) < minimum {
		return fmt.Errorf("at least %d scale factors are necessary, got %d", minimum, len(scaleFactors))
	}
	for _, s := range scaleFactors {
		if s < 1 {
			return fmt.Errorf("scale factor %g is below 1", s)
		}
	}
	return nil
}
