package circuit

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Operation is a gate applied to an ordered tuple of qubit identifiers.
type Operation struct {
	Gate   Gate
	Qubits []int
}

// NewOperation builds an operation, copying the qubit tuple. It panics when
// the tuple length does not match the gate arity or a qubit repeats.
func NewOperation(g Gate, qubits ...int) Operation {
	if len(qubits) != g.Arity() {
		panic(fmt.Sprintf("circuit: gate %s expects %d qubits, got %d", g, g.Arity(), len(qubits)))
	}
	seen := make(map[int]struct{}, len(qubits))
	for _, q := range qubits {
		if q < 0 {
			panic(fmt.Sprintf("circuit: negative qubit index %d", q))
		}
		if _, dup := seen[q]; dup {
			panic(fmt.Sprintf("circuit: duplicate qubit %d in operation %s", q, g))
		}
		seen[q] = struct{}{}
	}
	qs := make([]int, len(qubits))
	copy(qs, qubits)
	return Operation{Gate: g, Qubits: qs}
}

// Adjoint returns the inverse operation on the same qubit tuple.
func (op Operation) Adjoint() (Operation, error) {
	inv, err := op.Gate.Adjoint()
	if err != nil {
		return Operation{}, err
	}
	return Operation{Gate: inv, Qubits: op.Qubits}, nil
}

// Equal reports whether two operations apply the same gate to the same
// qubit tuple.
func (op Operation) Equal(other Operation) bool {
	if !op.Gate.Equal(other.Gate) || len(op.Qubits) != len(other.Qubits) {
		return false
	}
	for i := range op.Qubits {
		if op.Qubits[i] != other.Qubits[i] {
			return false
		}
	}
	return true
}

func (op Operation) String() string {
	var sbb strings.Builder
	sbb.WriteString(op.Gate.String())
	sbb.WriteByte(' ')
	for i, q := range op.Qubits {
		if i > 0 {
			sbb.WriteByte(',')
		}
		fmt.Fprintf(&sbb, "q%d", q)
	}
	return sbb.String()
}

// Moment is an ordered set of operations schedulable in parallel; operations
// within one moment act on disjoint qubits.
type Moment []Operation

// qubits returns the set of qubits touched by the moment.
func (m Moment) qubits() *bitset.BitSet {
	s := bitset.New(8)
	for _, op := range m {
		for _, q := range op.Qubits {
			s.Set(uint(q))
		}
	}
	return s
}

// overlaps reports whether op touches a qubit already used in the moment.
func (m Moment) overlaps(op Operation) bool {
	used := m.qubits()
	for _, q := range op.Qubits {
		if used.Test(uint(q)) {
			return true
		}
	}
	return false
}

// Circuit is an immutable ordered sequence of moments.
type Circuit struct {
	moments []Moment
}

// New builds a circuit from moments. Moments are copied; empty moments are
// dropped. It panics when operations within one moment share a qubit.
func New(moments ...Moment) Circuit {
	out := make([]Moment, 0, len(moments))
	for _, m := range moments {
		if len(m) == 0 {
			continue
		}
		cp := make(Moment, 0, len(m))
		for _, op := range m {
			if cp.overlaps(op) {
				panic(fmt.Sprintf("circuit: operations in one moment share a qubit: %s", op))
			}
			cp = append(cp, op)
		}
		out = append(out, cp)
	}
	return Circuit{moments: out}
}

// FromOperations packs operations into moments with an earliest-fit
// strategy, preserving sequence order per qubit.
func FromOperations(ops ...Operation) Circuit {
	var moments []Moment
	for _, op := range ops {
		// the op goes right after the last moment touching one of its qubits
		idx := 0
		for i := len(moments) - 1; i >= 0; i-- {
			if moments[i].overlaps(op) {
				idx = i + 1
				break
			}
		}
		if idx == len(moments) {
			moments = append(moments, Moment{op})
		} else {
			moments[idx] = append(moments[idx], op)
		}
	}
	return Circuit{moments: moments}
}

// Moments returns a copy of the moment sequence.
func (c Circuit) Moments() []Moment {
	out := make([]Moment, len(c.moments))
	for i, m := range c.moments {
		out[i] = append(Moment(nil), m...)
	}
	return out
}

// Operations returns the flattened operation sequence in execution order.
func (c Circuit) Operations() []Operation {
	var out []Operation
	for _, m := range c.moments {
		out = append(out, m...)
	}
	return out
}

// NumGates returns the total number of operations, measurements included.
func (c Circuit) NumGates() int {
	n := 0
	for _, m := range c.moments {
		n += len(m)
	}
	return n
}

// Depth returns the number of moments.
func (c Circuit) Depth() int { return len(c.moments) }

// Qubits returns the set of qubit indices the circuit acts on.
func (c Circuit) Qubits() *bitset.BitSet {
	s := bitset.New(8)
	for _, m := range c.moments {
		s.InPlaceUnion(m.qubits())
	}
	return s
}

// NumQubits returns the number of distinct qubits the circuit acts on.
func (c Circuit) NumQubits() int { return int(c.Qubits().Count()) }

// Append returns a new circuit with ops packed after the existing moments.
func (c Circuit) Append(ops ...Operation) Circuit {
	tail := FromOperations(ops...)
	return c.Compose(tail)
}

// Compose returns a new circuit running c then other.
func (c Circuit) Compose(other Circuit) Circuit {
	moments := make([]Moment, 0, len(c.moments)+len(other.moments))
	moments = append(moments, c.moments...)
	moments = append(moments, other.moments...)
	return Circuit{moments: moments}
}

// Inverse returns the adjoint circuit: every moment inverted, in reverse
// order. It fails on the first gate without a known adjoint.
func (c Circuit) Inverse() (Circuit, error) {
	moments := make([]Moment, 0, len(c.moments))
	for i := len(c.moments) - 1; i >= 0; i-- {
		m := make(Moment, 0, len(c.moments[i]))
		for _, op := range c.moments[i] {
			inv, err := op.Adjoint()
			if err != nil {
				return Circuit{}, fmt.Errorf("inverting %s: %w", op, err)
			}
			m = append(m, inv)
		}
		moments = append(moments, m)
	}
	return Circuit{moments: moments}, nil
}

// PopMeasurements returns the circuit with all measurements removed, plus
// the removed measurement operations in sequence order.
func (c Circuit) PopMeasurements() (Circuit, []Operation) {
	var measurements []Operation
	moments := make([]Moment, 0, len(c.moments))
	for _, m := range c.moments {
		var kept Moment
		for _, op := range m {
			if op.Gate.IsMeasurement() {
				measurements = append(measurements, op)
				continue
			}
			kept = append(kept, op)
		}
		if len(kept) > 0 {
			moments = append(moments, kept)
		}
	}
	return Circuit{moments: moments}, measurements
}

// AppendMeasurements returns a new circuit with the measurements re-inserted
// as a single terminal moment.
func (c Circuit) AppendMeasurements(measurements []Operation) Circuit {
	if len(measurements) == 0 {
		return c
	}
	m := make(Moment, len(measurements))
	copy(m, measurements)
	moments := make([]Moment, 0, len(c.moments)+1)
	moments = append(moments, c.moments...)
	moments = append(moments, m)
	return Circuit{moments: moments}
}

// AllMeasurementsTerminal reports whether no qubit is operated on after
// being measured.
func (c Circuit) AllMeasurementsTerminal() bool {
	measured := bitset.New(8)
	for _, m := range c.moments {
		for _, op := range m {
			for _, q := range op.Qubits {
				if measured.Test(uint(q)) {
					return false
				}
			}
		}
		for _, op := range m {
			if op.Gate.IsMeasurement() {
				for _, q := range op.Qubits {
					measured.Set(uint(q))
				}
			}
		}
	}
	return true
}

// Equal reports whether two circuits have identical moment structure.
func (c Circuit) Equal(other Circuit) bool {
	if len(c.moments) != len(other.moments) {
		return false
	}
	for i := range c.moments {
		if len(c.moments[i]) != len(other.moments[i]) {
			return false
		}
		for j := range c.moments[i] {
			if !c.moments[i][j].Equal(other.moments[i][j]) {
				return false
			}
		}
	}
	return true
}

func (c Circuit) String() string {
	var sbb strings.Builder
	for i, m := range c.moments {
		if i > 0 {
			sbb.WriteString(" | ")
		}
		for j, op := range m {
			if j > 0 {
				sbb.WriteString("; ")
			}
			sbb.WriteString(op.String())
		}
	}
	return sbb.String()
}
