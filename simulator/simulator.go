// Package simulator provides a closed-form depolarizing-noise executor for
// tests and examples. It handles circuits built from X and identity gates
// (plus terminal measurements), for which the expectation of the all-zeros
// projector has an exact analytic form, so no state vector is ever built.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zetralabs/zetra/circuit"
	"github.com/zetralabs/zetra/executor"
)

// ErrUnsupportedGate is returned for gates outside the X/I/measure set the
// closed form covers.
var ErrUnsupportedGate = errors.New("simulator supports only x, i and measurement gates")

// Depolarizing runs circuits under a single-qubit depolarizing channel of
// strength p applied after every gate. The expectation it reports is that of
// the all-zeros projector: per qubit with g noisy gates the Bloch vector
// shrinks to (1-p)^g, giving 0.5+0.5(1-p)^g when the ideal outcome is |0>
// and 0.5-0.5(1-p)^g when it is |1>. Because the gates of the circuit it
// actually receives are counted, noise-scaled copies of a circuit decay
// faster than the original.
type Depolarizing struct {
	p float64
}

// NewDepolarizing builds a depolarizing executor with per-gate error
// probability p in [0, 1).
func NewDepolarizing(p float64) (*Depolarizing, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("depolarizing probability must be in [0, 1), got %g", p)
	}
	return &Depolarizing{p: p}, nil
}

// Execute evaluates the all-zeros projector expectation of c in closed form.
func (d *Depolarizing) Execute(_ context.Context, c circuit.Circuit) (executor.Result, error) {
	value := 1.0
	gateCount, parity, err := tally(c)
	if err != nil {
		return executor.Result{}, err
	}
	for q, g := range gateCount {
		coherent := 0.5 * math.Pow(1-d.p, float64(g))
		if parity[q] {
			value *= 0.5 - coherent
		} else {
			value *= 0.5 + coherent
		}
	}
	return executor.Scalar(value), nil
}

// ExecuteBatch evaluates every circuit; results are positionally aligned.
func (d *Depolarizing) ExecuteBatch(ctx context.Context, cs []circuit.Circuit) ([]executor.Result, error) {
	results := make([]executor.Result, len(cs))
	for i, c := range cs {
		r, err := d.Execute(ctx, c)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// Sampler is a Depolarizing executor that reports deterministic measurement
// counts instead of a scalar: the exact outcome distribution rounded to the
// configured shot budget. Useful for exercising the counts-and-observable
// path without pseudo-randomness in tests.
type Sampler struct {
	d     Depolarizing
	shots int64
}

// NewSampler builds a counts-producing depolarizing executor.
func NewSampler(p float64, shots int64) (*Sampler, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}
	d, err := NewDepolarizing(p)
	if err != nil {
		return nil, err
	}
	return &Sampler{d: *d, shots: shots}, nil
}

// Execute returns the exact per-qubit product distribution over bitstrings,
// scaled to the shot budget. Bitstring character i is qubit i in ascending
// qubit order.
func (s *Sampler) Execute(_ context.Context, c circuit.Circuit) (executor.Result, error) {
	gateCount, parity, err := tally(c)
	if err != nil {
		return executor.Result{}, err
	}

	qubits := make([]int, 0, len(gateCount))
	for q := range gateCount {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)

	// probability of measuring 0 on each qubit
	p0 := make([]float64, len(qubits))
	for i, q := range qubits {
		coherent := 0.5 * math.Pow(1-s.d.p, float64(gateCount[q]))
		if parity[q] {
			p0[i] = 0.5 - coherent
		} else {
			p0[i] = 0.5 + coherent
		}
	}

	counts := executor.Counts{}
	bits := make([]byte, len(qubits))
	var fill func(i int, prob float64)
	fill = func(i int, prob float64) {
		if i == len(qubits) {
			if n := int64(math.Round(prob * float64(s.shots))); n > 0 {
				counts[string(bits)] = n
			}
			return
		}
		bits[i] = '0'
		fill(i+1, prob*p0[i])
		bits[i] = '1'
		fill(i+1, prob*(1-p0[i]))
	}
	fill(0, 1)
	return executor.FromCounts(counts), nil
}

// ExecuteBatch evaluates every circuit; results are positionally aligned.
func (s *Sampler) ExecuteBatch(ctx context.Context, cs []circuit.Circuit) ([]executor.Result, error) {
	results := make([]executor.Result, len(cs))
	for i, c := range cs {
		r, err := s.Execute(ctx, c)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// tally counts noisy gates and the X parity per qubit. Every qubit the
// circuit touches gets an entry, even if only identities act on it.
func tally(c circuit.Circuit) (gateCount map[int]int, parity map[int]bool, err error) {
	gateCount = make(map[int]int)
	parity = make(map[int]bool)
	for _, op := range c.Operations() {
		q := op.Qubits[0]
		switch op.Gate.Kind() {
		case circuit.Measure:
			continue
		case circuit.X:
			gateCount[q]++
			parity[q] = !parity[q]
		case circuit.I:
			gateCount[q]++
		default:
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedGate, op.Gate.Kind())
		}
	}
	return gateCount, parity, nil
}
