package scaling

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/zetralabs/zetra/circuit"
)

// identityLayer returns a moment of identity gates on every qubit of c.
func identityLayer(c circuit.Circuit) circuit.Moment {
	var m circuit.Moment
	qubits := c.Qubits()
	for q, ok := qubits.NextSet(0); ok; q, ok = qubits.NextSet(q + 1) {
		m = append(m, circuit.NewOperation(circuit.NewGate(circuit.I), int(q)))
	}
	return m
}

// InsertIDLayers scales circuit duration by inserting idle identity layers
// instead of folding gates, for backends where fixed per-moment duration
// noise dominates. For integer λ = 1+n, n uniform layers follow every
// moment. For real λ, floor(λ)-1 uniform layers are inserted plus
// round((λ-floor(λ))·depth) extra single layers at randomly chosen distinct
// positions. λ = 1 returns the circuit unchanged.
func InsertIDLayers(c circuit.Circuit, scaleFactor float64, rng *rand.Rand) (circuit.Circuit, error) {
	if scaleFactor < 1 {
		return circuit.Circuit{}, fmt.Errorf("%w: got %g", ErrInvalidScaleFactor, scaleFactor)
	}
	moments := c.Moments()
	if len(moments) == 0 || scaleFactor == 1 {
		return c, nil
	}

	uniform := int(math.Floor(scaleFactor)) - 1
	extra := int(math.Round((scaleFactor - math.Floor(scaleFactor)) * float64(len(moments))))
	if extra > 0 && rng == nil {
		return circuit.Circuit{}, errors.New("fractional identity scaling requires a non-nil random source")
	}

	// choose the distinct moment positions receiving one extra layer
	extraAt := make(map[int]bool, extra)
	if extra > 0 {
		for _, p := range rng.Perm(len(moments))[:extra] {
			extraAt[p] = true
		}
	}

	idle := identityLayer(c)
	out := make([]circuit.Moment, 0, len(moments)*(1+uniform)+extra)
	for i, m := range moments {
		out = append(out, m)
		n := uniform
		if extraAt[i] {
			n++
		}
		for k := 0; k < n; k++ {
			out = append(out, idle)
		}
	}
	return circuit.New(out...), nil
}

// IdentityLayers returns InsertIDLayers bound with a random source, as a
// Method.
func IdentityLayers(rng *rand.Rand) Method {
	return func(c circuit.Circuit, scaleFactor float64) (circuit.Circuit, error) {
		return InsertIDLayers(c, scaleFactor, rng)
	}
}

// LayerFolding applies a per-moment number of folds: layersToFold[i] is how
// many times moment i is replaced by M·(M⁻¹·M). Moments containing
// measurements are never folded.
func LayerFolding(c circuit.Circuit, layersToFold []int) (circuit.Circuit, error) {
	moments := c.Moments()
	if len(layersToFold) != len(moments) {
		return circuit.Circuit{}, fmt.Errorf("layersToFold has %d entries for %d moments", len(layersToFold), len(moments))
	}
	out := make([]circuit.Moment, 0, len(moments))
	for i, m := range moments {
		out = append(out, m)
		if layersToFold[i] <= 0 || momentHasMeasurement(m) {
			continue
		}
		inv := make(circuit.Moment, 0, len(m))
		for _, op := range m {
			invOp, err := op.Adjoint()
			if err != nil {
				return circuit.Circuit{}, fmt.Errorf("%w: %s", ErrUnfoldableGate, op)
			}
			inv = append(inv, invOp)
		}
		for k := 0; k < layersToFold[i]; k++ {
			out = append(out, inv, m)
		}
	}
	return circuit.New(out...), nil
}

func momentHasMeasurement(m circuit.Moment) bool {
	for _, op := range m {
		if op.Gate.IsMeasurement() {
			return true
		}
	}
	return false
}
