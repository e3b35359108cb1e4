package circuit

import (
	"errors"
	"fmt"
)

// Arity-class keys accepted by FidelityMap alongside specific gate names.
const (
	ClassSingle = "single"
	ClassDouble = "double"
	ClassTriple = "triple"
)

var ErrInvalidFidelity = errors.New("fidelity must be in [0, 1]")

// FidelityMap assigns fidelity weights to gate classes. Keys are either a
// specific gate name ("cnot") or an arity class ("single", "double",
// "triple"); specific names win over classes. A fidelity of exactly 1.0
// marks a gate as noiseless: it is excluded from folding and does not count
// toward the fold budget.
type FidelityMap map[string]float64

// Validate checks all weights are within [0, 1].
func (f FidelityMap) Validate() error {
	for k, v := range f {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %q has %g", ErrInvalidFidelity, k, v)
		}
	}
	return nil
}

func classKey(arity int) string {
	switch arity {
	case 1:
		return ClassSingle
	case 2:
		return ClassDouble
	case 3:
		return ClassTriple
	default:
		return ""
	}
}

// Resolve returns the fidelity weight for an operation: exact gate-name key,
// falling back to the arity-class key, falling back to 0 (noisy, foldable).
func (f FidelityMap) Resolve(op Operation) float64 {
	if v, ok := f[string(op.Gate.Kind())]; ok {
		return v
	}
	if v, ok := f[classKey(op.Gate.Arity())]; ok {
		return v
	}
	return 0
}

// Weight returns the fold-budget contribution of an operation, 1-fidelity.
func (f FidelityMap) Weight(op Operation) float64 {
	return 1 - f.Resolve(op)
}

// Foldable reports whether the operation participates in folding.
func (f FidelityMap) Foldable(op Operation) bool {
	return f.Resolve(op) != 1
}
