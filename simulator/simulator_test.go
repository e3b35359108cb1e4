package simulator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zetralabs/zetra/circuit"
	"github.com/zetralabs/zetra/observable"
)

func xCircuit(n int) circuit.Circuit {
	ops := make([]circuit.Operation, n)
	for i := range ops {
		ops[i] = circuit.NewOperation(circuit.NewGate(circuit.X), 0)
	}
	return circuit.FromOperations(ops...)
}

func TestDepolarizingNoiseless(t *testing.T) {
	assert := require.New(t)

	sim, err := NewDepolarizing(0)
	assert.NoError(err)

	// even X parity returns to |0>
	r, err := sim.Execute(context.Background(), xCircuit(4))
	assert.NoError(err)
	assert.InDelta(1, r.Value, 1e-12)

	// odd parity lands on |1>
	r, err = sim.Execute(context.Background(), xCircuit(3))
	assert.NoError(err)
	assert.InDelta(0, r.Value, 1e-12)
}

func TestDepolarizingClosedForm(t *testing.T) {
	assert := require.New(t)

	const p = 0.01
	sim, err := NewDepolarizing(p)
	assert.NoError(err)

	for _, g := range []int{2, 10, 80} {
		r, err := sim.Execute(context.Background(), xCircuit(g))
		assert.NoError(err)
		want := 0.5 + 0.5*math.Pow(1-p, float64(g))
		if g%2 == 1 {
			want = 0.5 - 0.5*math.Pow(1-p, float64(g))
		}
		assert.InDelta(want, r.Value, 1e-12)
	}
}

func TestDepolarizingMultiQubitProduct(t *testing.T) {
	assert := require.New(t)

	const p = 0.02
	sim, err := NewDepolarizing(p)
	assert.NoError(err)

	// two X on qubit 0, one I on qubit 1; measurements do not add noise
	c := circuit.FromOperations(
		circuit.NewOperation(circuit.NewGate(circuit.X), 0),
		circuit.NewOperation(circuit.NewGate(circuit.X), 0),
		circuit.NewOperation(circuit.NewGate(circuit.I), 1),
		circuit.NewOperation(circuit.NewGate(circuit.Measure), 0),
		circuit.NewOperation(circuit.NewGate(circuit.Measure), 1),
	)
	r, err := sim.Execute(context.Background(), c)
	assert.NoError(err)
	want := (0.5 + 0.5*math.Pow(1-p, 2)) * (0.5 + 0.5*(1-p))
	assert.InDelta(want, r.Value, 1e-12)
}

func TestDepolarizingRejectsUnsupportedGates(t *testing.T) {
	assert := require.New(t)

	sim, err := NewDepolarizing(0.01)
	assert.NoError(err)
	c := circuit.FromOperations(circuit.NewOperation(circuit.NewGate(circuit.H), 0))
	_, err = sim.Execute(context.Background(), c)
	assert.ErrorIs(err, ErrUnsupportedGate)

	_, err = NewDepolarizing(1)
	assert.Error(err)
	_, err = NewDepolarizing(-0.5)
	assert.Error(err)
}

func TestSamplerMatchesScalarExecutor(t *testing.T) {
	assert := require.New(t)

	const p = 0.005
	const shots = 1_000_000

	sim, err := NewDepolarizing(p)
	assert.NoError(err)
	sampler, err := NewSampler(p, shots)
	assert.NoError(err)

	c := xCircuit(40)
	want, err := sim.Execute(context.Background(), c)
	assert.NoError(err)

	r, err := sampler.Execute(context.Background(), c)
	assert.NoError(err)
	assert.False(r.IsScalar())

	var total int64
	for _, n := range r.Counts {
		total += n
	}
	assert.InDelta(shots, float64(total), 1) // rounding only

	got, err := observable.ZeroProjector(0).Expectation(r.Counts)
	assert.NoError(err)
	assert.InDelta(want.Value, got, 1e-5)
}

func TestBatchAlignment(t *testing.T) {
	assert := require.New(t)

	sim, err := NewDepolarizing(0.01)
	assert.NoError(err)
	cs := []circuit.Circuit{xCircuit(2), xCircuit(4), xCircuit(6)}
	res, err := sim.ExecuteBatch(context.Background(), cs)
	assert.NoError(err)
	assert.Len(res, 3)
	for i, c := range cs {
		single, err := sim.Execute(context.Background(), c)
		assert.NoError(err)
		assert.Equal(single.Value, res[i].Value)
	}
}
