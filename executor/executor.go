// Package executor defines the contract between the mitigation core and the
// backend that actually runs circuits. The core treats executors as black
// boxes: their errors propagate unchanged and no result is ever fabricated
// for a failed execution.
package executor

import (
	"context"
	"errors"

	"github.com/zetralabs/zetra/circuit"
)

// Counts maps a computational-basis bitstring (character i is qubit i) to
// the number of shots that produced it.
type Counts map[string]int64

// Result is a single execution outcome: either a scalar expectation value
// or raw measurement counts, never both.
type Result struct {
	Value  float64
	Counts Counts
}

// IsScalar reports whether the result carries a scalar expectation value.
func (r Result) IsScalar() bool { return r.Counts == nil }

// Scalar wraps an expectation value in a Result.
func Scalar(v float64) Result { return Result{Value: v} }

// FromCounts wraps measurement counts in a Result.
func FromCounts(c Counts) Result { return Result{Counts: c} }

// Merge accumulates counts from other into a copy of c.
func (c Counts) Merge(other Counts) Counts {
	out := make(Counts, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] += v
	}
	return out
}

// Executor runs one circuit on a backend or simulator.
type Executor interface {
	Execute(ctx context.Context, c circuit.Circuit) (Result, error)
}

// BatchExecutor is implemented by executors that accept several circuits in
// one submission. The orchestrator upgrades to it when available.
type BatchExecutor interface {
	Executor
	ExecuteBatch(ctx context.Context, cs []circuit.Circuit) ([]Result, error)
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, c circuit.Circuit) (Result, error)

func (f Func) Execute(ctx context.Context, c circuit.Circuit) (Result, error) {
	return f(ctx, c)
}

// BatchFunc adapts a batch-submission function to the BatchExecutor
// interface; single executions go through a one-element batch.
type BatchFunc func(ctx context.Context, cs []circuit.Circuit) ([]Result, error)

func (f BatchFunc) Execute(ctx context.Context, c circuit.Circuit) (Result, error) {
	res, err := f(ctx, []circuit.Circuit{c})
	if err != nil {
		return Result{}, err
	}
	if len(res) != 1 {
		return Result{}, errBatchSize
	}
	return res[0], nil
}

func (f BatchFunc) ExecuteBatch(ctx context.Context, cs []circuit.Circuit) ([]Result, error) {
	return f(ctx, cs)
}

var errBatchSize = errors.New("batch executor returned a result count different from the circuit count")

// ExecuteAll runs every circuit through exec, in one call when exec supports
// batch submission, sequentially otherwise. Results are positionally
// aligned with the input circuits.
func ExecuteAll(ctx context.Context, exec Executor, cs []circuit.Circuit) ([]Result, error) {
	if b, ok := exec.(BatchExecutor); ok {
		res, err := b.ExecuteBatch(ctx, cs)
		if err != nil {
			return nil, err
		}
		if len(res) != len(cs) {
			return nil, errBatchSize
		}
		return res, nil
	}
	res := make([]Result, len(cs))
	for i, c := range cs {
		r, err := exec.Execute(ctx, c)
		if err != nil {
			return nil, err
		}
		res[i] = r
	}
	return res, nil
}
