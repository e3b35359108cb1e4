package observable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleZExpectation(t *testing.T) {
	assert := require.New(t)

	obs := New(Z(0, 1))

	v, err := obs.Expectation(map[string]int64{"0": 3, "1": 1})
	assert.NoError(err)
	assert.InDelta(0.5, v, 1e-12) // (3-1)/4

	v, err = obs.Expectation(map[string]int64{"1": 10})
	assert.NoError(err)
	assert.InDelta(-1, v, 1e-12)
}

func TestMultiTermExpectation(t *testing.T) {
	assert := require.New(t)

	// 0.5·I + 0.5·Z0Z1 over |00> and |01>
	obs := New(
		Identity(0.5),
		PauliString{Coefficient: 0.5, Paulis: map[int]Pauli{0: PauliZ, 1: PauliZ}},
	)
	v, err := obs.Expectation(map[string]int64{"00": 1, "01": 1})
	assert.NoError(err)
	// Z0Z1 is +1 on 00 and -1 on 01
	assert.InDelta(0.5, v, 1e-12)
}

func TestZeroProjector(t *testing.T) {
	assert := require.New(t)

	obs := ZeroProjector(0)
	assert.Len(obs.Terms, 2)

	v, err := obs.Expectation(map[string]int64{"0": 3, "1": 1})
	assert.NoError(err)
	assert.InDelta(0.75, v, 1e-12)

	// two qubits: the projector picks out the all-zeros population
	obs = ZeroProjector(0, 1)
	assert.Len(obs.Terms, 4)
	v, err = obs.Expectation(map[string]int64{"00": 5, "01": 1, "10": 1, "11": 1})
	assert.NoError(err)
	assert.InDelta(0.625, v, 1e-12)
}

func TestExpectationErrors(t *testing.T) {
	assert := require.New(t)

	_, err := New(Z(0, 1)).Expectation(nil)
	assert.ErrorIs(err, ErrNoCounts)

	nonDiag := New(PauliString{Coefficient: 1, Paulis: map[int]Pauli{0: PauliX}})
	_, err = nonDiag.Expectation(map[string]int64{"0": 1})
	assert.ErrorIs(err, ErrNonDiagonal)

	// bitstring shorter than the highest measured qubit
	_, err = New(Z(3, 1)).Expectation(map[string]int64{"00": 1})
	assert.Error(err)
}
