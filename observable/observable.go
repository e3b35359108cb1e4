// Package observable models Hermitian operators as weighted sums of Pauli
// strings and evaluates their expectation values over measured bitstring
// counts.
package observable

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNonDiagonal = errors.New("observable has non-diagonal terms; counts were measured in the computational basis")
	ErrNoCounts    = errors.New("empty measurement counts")
)

// Pauli is a single-qubit Pauli letter.
type Pauli byte

const (
	PauliX Pauli = 'X'
	PauliY Pauli = 'Y'
	PauliZ Pauli = 'Z'
)

// PauliString is a tensor product of Pauli letters on selected qubits,
// scaled by a real coefficient. Qubits absent from the map carry identity.
type PauliString struct {
	Coefficient float64
	Paulis      map[int]Pauli
}

// Z returns the single-letter string coeff·Z_q.
func Z(q int, coeff float64) PauliString {
	return PauliString{Coefficient: coeff, Paulis: map[int]Pauli{q: PauliZ}}
}

// Identity returns the identity term with the given coefficient.
func Identity(coeff float64) PauliString {
	return PauliString{Coefficient: coeff}
}

// Observable is a Hermitian operator given as a sum of Pauli strings.
type Observable struct {
	Terms []PauliString
}

// New builds an observable from terms.
func New(terms ...PauliString) *Observable {
	return &Observable{Terms: terms}
}

// ZeroProjector returns |0…0⟩⟨0…0| on the given qubits, expanded into its
// 2^n Pauli-Z terms. Intended for small qubit counts.
func ZeroProjector(qubits ...int) *Observable {
	n := len(qubits)
	coeff := 1 / math.Pow(2, float64(n))
	terms := make([]PauliString, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		paulis := make(map[int]Pauli)
		for i, q := range qubits {
			if mask&(1<<i) != 0 {
				paulis[q] = PauliZ
			}
		}
		terms = append(terms, PauliString{Coefficient: coeff, Paulis: paulis})
	}
	return &Observable{Terms: terms}
}

// qubits returns the sorted distinct qubit indices of a term.
func (p PauliString) qubits() []int {
	qs := make([]int, 0, len(p.Paulis))
	for q := range p.Paulis {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// Expectation evaluates the observable over computational-basis counts.
// Bitstring keys index qubits left to right: character i is qubit i. Only
// I/Z terms can be evaluated from such counts; an X or Y letter yields
// ErrNonDiagonal.
func (o *Observable) Expectation(counts map[string]int64) (float64, error) {
	var total int64
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0, ErrNoCounts
	}

	var expectation float64
	for _, term := range o.Terms {
		for q, p := range term.Paulis {
			if p != PauliZ {
				return 0, fmt.Errorf("%w: %c on qubit %d", ErrNonDiagonal, p, q)
			}
		}
		zs := term.qubits()
		var acc float64
		for outcome, n := range counts {
			ones := 0
			for _, q := range zs {
				if q >= len(outcome) {
					return 0, fmt.Errorf("outcome %q too short for qubit %d", outcome, q)
				}
				if outcome[q] == '1' {
					ones++
				}
			}
			// ⟨b|Z…Z|b⟩ = (-1)^(number of 1s on the Z positions)
			sign := 1.0
			if ones%2 == 1 {
				sign = -1.0
			}
			acc += sign * float64(n)
		}
		expectation += term.Coefficient * acc / float64(total)
	}
	return expectation, nil
}
