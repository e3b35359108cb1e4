package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFidelityMapValidate(t *testing.T) {
	assert := require.New(t)

	assert.NoError(FidelityMap{"x": 0.99, ClassDouble: 0.98}.Validate())
	assert.ErrorIs(FidelityMap{"x": 1.5}.Validate(), ErrInvalidFidelity)
	assert.ErrorIs(FidelityMap{"x": -0.1}.Validate(), ErrInvalidFidelity)
	assert.NoError(FidelityMap(nil).Validate())
}

func TestFidelityMapResolution(t *testing.T) {
	assert := require.New(t)

	f := FidelityMap{
		"cnot":      0.98,
		ClassSingle: 0.999,
		ClassDouble: 0.95,
	}

	x := NewOperation(NewGate(X), 0)
	cnot := NewOperation(NewGate(CNOT), 0, 1)
	cz := NewOperation(NewGate(CZ), 0, 1)
	toffoli := NewOperation(NewGate(Toffoli), 0, 1, 2)

	// specific name beats the arity class
	assert.Equal(0.98, f.Resolve(cnot))
	// arity class fallback
	assert.Equal(0.999, f.Resolve(x))
	assert.Equal(0.95, f.Resolve(cz))
	// no key at all: fidelity 0, fully noisy
	assert.Equal(0.0, f.Resolve(toffoli))
	assert.Equal(1.0, f.Weight(toffoli))
}

func TestFidelityMapFoldable(t *testing.T) {
	assert := require.New(t)

	f := FidelityMap{"rz": 1.0, "x": 0.999}
	rz := NewOperation(NewRotation(RZ, 0.3), 0)
	x := NewOperation(NewGate(X), 0)

	// fidelity exactly 1 excludes the gate from folding
	assert.False(f.Foldable(rz))
	assert.Equal(0.0, f.Weight(rz))

	assert.True(f.Foldable(x))
	assert.InDelta(0.001, f.Weight(x), 1e-12)

	// the default is foldable
	assert.True(FidelityMap(nil).Foldable(x))
}
