// Package scaling implements the noise-scaling circuit transformations used
// by zero-noise extrapolation: unitary folding (gate and whole-circuit
// level) and identity layer insertion.
//
// Every transformation maps (circuit, scaleFactor ≥ 1) to a new circuit
// whose ideal unitary is unchanged but whose sensitivity to physical noise
// grows with the scale factor. Inputs are never mutated.
package scaling

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/zetralabs/zetra/circuit"
	"github.com/zetralabs/zetra/logger"
)

var (
	// ErrInvalidScaleFactor rejects scale factors below 1 before any
	// circuit transformation is attempted.
	ErrInvalidScaleFactor = errors.New("scale factor must be a real number >= 1")

	// ErrUnfoldableGate is returned when a gate without a known inverse is
	// selected for folding and was not excluded through a fidelity of 1.0.
	ErrUnfoldableGate = errors.New("gate selected for folding has no known inverse")

	// ErrIntermediateMeasurement is returned for circuits that measure a
	// qubit and keep operating on it; such circuits cannot be folded.
	ErrIntermediateMeasurement = errors.New("circuit contains intermediate measurements and cannot be folded")
)

// Method maps a circuit to its noise-scaled version. zne.ExecuteWithZNE
// accepts any Method, including user-supplied ones.
type Method func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error)

// Option configures a folding call.
type Option func(*config) error

type config struct {
	fidelities circuit.FidelityMap
}

// WithFidelities assigns fidelity weights to gate classes. Gates resolved to
// a fidelity of exactly 1.0 are treated as noiseless and excluded from
// folding; other gates contribute 1-fidelity to the fold budget.
func WithFidelities(f circuit.FidelityMap) Option {
	return func(cfg *config) error {
		if err := f.Validate(); err != nil {
			return err
		}
		cfg.fidelities = f
		return nil
	}
}

func newConfig(opts ...Option) (config, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return cfg, fmt.Errorf("apply option: %w", err)
		}
	}
	return cfg, nil
}

// foldOrder enumerates which gates receive the fractional part of the fold
// budget.
type foldOrder uint8

const (
	orderFromLeft foldOrder = iota
	orderFromRight
	orderAtRandom
)

// FoldGatesFromLeft folds gates (G → G·G⁻¹·G) starting from the beginning
// of the gate sequence until the budget implied by scaleFactor is met.
func FoldGatesFromLeft(c circuit.Circuit, scaleFactor float64, opts ...Option) (circuit.Circuit, error) {
	return foldGates(c, scaleFactor, orderFromLeft, nil, opts...)
}

// FoldGatesFromRight folds gates starting from the end of the sequence.
func FoldGatesFromRight(c circuit.Circuit, scaleFactor float64, opts ...Option) (circuit.Circuit, error) {
	return foldGates(c, scaleFactor, orderFromRight, nil, opts...)
}

// FoldGatesAtRandom folds a uniformly random subset of gates. The random
// source is caller-owned so that concurrent folds with different seeds do
// not interfere; it must not be nil.
func FoldGatesAtRandom(c circuit.Circuit, scaleFactor float64, rng *rand.Rand, opts ...Option) (circuit.Circuit, error) {
	if rng == nil {
		return circuit.Circuit{}, errors.New("folding at random requires a non-nil random source")
	}
	return foldGates(c, scaleFactor, orderAtRandom, rng, opts...)
}

// foldGates implements local folding for all three orderings.
//
// With n_w = Σ(1-fidelity) over foldable gates, the total fold budget is
// n_w·(λ-1)/2. Whole multiples of n_w become full passes (every foldable
// gate folded once per pass, which makes all orderings agree on odd integer
// scale factors); the remainder is spent on a partial pass over gates in the
// requested order, each selected gate consuming its own weight.
func foldGates(c circuit.Circuit, scaleFactor float64, order foldOrder, rng *rand.Rand, opts ...Option) (circuit.Circuit, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return circuit.Circuit{}, err
	}
	if scaleFactor < 1 {
		return circuit.Circuit{}, fmt.Errorf("%w: got %g", ErrInvalidScaleFactor, scaleFactor)
	}
	if !c.AllMeasurementsTerminal() {
		return circuit.Circuit{}, ErrIntermediateMeasurement
	}

	stripped, measurements := c.PopMeasurements()
	ops := stripped.Operations()
	if len(ops) == 0 {
		return c, nil
	}

	// foldable pool and its total weight
	pool := make([]int, 0, len(ops))
	weights := make([]float64, len(ops))
	var totalWeight float64
	for i, op := range ops {
		if !cfg.fidelities.Foldable(op) {
			continue
		}
		pool = append(pool, i)
		weights[i] = cfg.fidelities.Weight(op)
		totalWeight += weights[i]
	}
	if len(pool) == 0 || totalWeight == 0 {
		log := logger.Logger()
		log.Warn().
			Float64("scaleFactor", scaleFactor).
			Msg("circuit has no foldable gates; noise scaling is a no-op")
		return c, nil
	}

	target := totalWeight * (scaleFactor - 1) / 2
	fullPasses := int(math.Floor(target / totalWeight))
	residual := target - float64(fullPasses)*totalWeight

	folds := make([]int, len(ops))
	for _, i := range pool {
		folds[i] = fullPasses
	}

	// partial pass: spend the residual on gates in the requested order,
	// folding a gate when at least half its weight still fits
	partial := append([]int(nil), pool...)
	switch order {
	case orderFromRight:
		for i, j := 0, len(partial)-1; i < j; i, j = i+1, j-1 {
			partial[i], partial[j] = partial[j], partial[i]
		}
	case orderAtRandom:
		rng.Shuffle(len(partial), func(i, j int) {
			partial[i], partial[j] = partial[j], partial[i]
		})
	}
	for _, i := range partial {
		if residual < weights[i]/2 {
			break
		}
		folds[i]++
		residual -= weights[i]
	}

	numFolds := 0
	for _, k := range folds {
		numFolds += k
	}
	if numFolds == 0 {
		return c, nil
	}

	folded := make([]circuit.Operation, 0, len(ops)+2*numFolds)
	for i, op := range ops {
		folded = append(folded, op)
		if folds[i] == 0 {
			continue
		}
		inv, err := op.Adjoint()
		if err != nil {
			return circuit.Circuit{}, fmt.Errorf("%w: %s", ErrUnfoldableGate, op)
		}
		for k := 0; k < folds[i]; k++ {
			folded = append(folded, inv, op)
		}
	}

	warnOnDeviation(scaleFactor, len(ops), numFolds)

	out := circuit.FromOperations(folded...)
	return out.AppendMeasurements(measurements), nil
}

// warnOnDeviation signals when the achieved gate-count ratio strays far from
// the requested scale factor, which happens on very short circuits with
// fractional scale factors.
func warnOnDeviation(scaleFactor float64, numGates, numFolds int) {
	achieved := float64(numGates+2*numFolds) / float64(numGates)
	if dev := math.Abs(achieved-scaleFactor) / scaleFactor; dev > 0.1 {
		log := logger.Logger()
		log.Warn().
			Float64("requested", scaleFactor).
			Float64("achieved", achieved).
			Msg("achieved gate-count ratio deviates from the requested scale factor")
	}
}

// FoldGlobal folds the circuit as one composite unitary U: with
// λ-1 = 2k + s, it produces U·(U⁻¹·U)^k followed by a local fold of a final
// slice of round(s·n/2) operations, so the gate count scales continuously
// with λ.
func FoldGlobal(c circuit.Circuit, scaleFactor float64, opts ...Option) (circuit.Circuit, error) {
	if _, err := newConfig(opts...); err != nil {
		return circuit.Circuit{}, err
	}
	if scaleFactor < 1 {
		return circuit.Circuit{}, fmt.Errorf("%w: got %g", ErrInvalidScaleFactor, scaleFactor)
	}
	if !c.AllMeasurementsTerminal() {
		return circuit.Circuit{}, ErrIntermediateMeasurement
	}

	base, measurements := c.PopMeasurements()
	ops := base.Operations()
	if len(ops) == 0 {
		return c, nil
	}

	numGlobalFolds := int(math.Floor((scaleFactor - 1) / 2))
	fraction := scaleFactor - 1 - 2*float64(numGlobalFolds)

	folded := base
	if numGlobalFolds > 0 {
		inverse, err := base.Inverse()
		if err != nil {
			return circuit.Circuit{}, fmt.Errorf("%w: %s", ErrUnfoldableGate, err)
		}
		for k := 0; k < numGlobalFolds; k++ {
			folded = folded.Compose(inverse).Compose(base)
		}
	}

	// fractional remainder: fold the final slice of the base circuit
	numToFold := int(math.Round(fraction * float64(len(ops)) / 2))
	if numToFold > 0 {
		suffix := circuit.FromOperations(ops[len(ops)-numToFold:]...)
		suffixInv, err := suffix.Inverse()
		if err != nil {
			return circuit.Circuit{}, fmt.Errorf("%w: %s", ErrUnfoldableGate, err)
		}
		folded = folded.Compose(suffixInv).Compose(suffix)
	}

	if numGlobalFolds == 0 && numToFold == 0 {
		return c, nil
	}

	warnOnDeviation(scaleFactor, len(ops), numGlobalFolds*len(ops)+numToFold)
	return folded.AppendMeasurements(measurements), nil
}

// GatesFromLeft returns FoldGatesFromLeft bound with options, as a Method.
func GatesFromLeft(opts ...Option) Method {
	return func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error) {
		return FoldGatesFromLeft(c, scaleFactor, opts...)
	}
}

// GatesFromRight returns FoldGatesFromRight bound with options, as a Method.
func GatesFromRight(opts ...Option) Method {
	return func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error) {
		return FoldGatesFromRight(c, scaleFactor, opts...)
	}
}

// GatesAtRandom returns FoldGatesAtRandom bound with a random source and
// options, as a Method.
func GatesAtRandom(rng *rand.Rand, opts ...Option) Method {
	return func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error) {
		return FoldGatesAtRandom(c, scaleFactor, rng, opts...)
	}
}

// Global returns FoldGlobal bound with options, as a Method.
func Global(opts ...Option) Method {
	return func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error) {
		return FoldGlobal(c, scaleFactor, opts...)
	}
}
