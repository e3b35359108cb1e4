// Package circuit defines the gate-sequence intermediate representation used
// by the noise scaling engines.
//
// Circuits are value types: every transformation returns a new Circuit and
// never mutates its input. Operations reference immutable Gate descriptors,
// so building a scaled circuit only assembles new slices of existing values.
package circuit

import (
	"errors"
	"fmt"
)

// Kind identifies a gate class ("x", "h", "cnot", ...toffoli).
type Kind string

const (
	I       Kind = "i"
	X       Kind = "x"
	Y       Kind = "y"
	Z       Kind = "z"
	H       Kind = "h"
	S       Kind = "s"
	Sdg     Kind = "sdg"
	T       Kind = "t"
	Tdg     Kind = "tdg"
	RX      Kind = "rx"
	RY      Kind = "ry"
	RZ      Kind = "rz"
	CNOT    Kind = "cnot"
	CZ      Kind = "cz"
	Swap    Kind = "swap"
	Toffoli Kind = "toffoli"
	Measure Kind = "measure"
)

// ErrNoAdjoint is returned when the adjoint of a gate is requested but no
// efficient inverse construction is known for it.
var ErrNoAdjoint = errors.New("gate has no known adjoint")

// adjointRule describes how a gate's inverse is constructed.
type adjointRule uint8

const (
	adjNone        adjointRule = iota // no known inverse
	adjSelf                           // G⁻¹ = G
	adjNegateParam                    // G(θ)⁻¹ = G(-θ)
	adjPaired                         // G⁻¹ is a distinct named gate
)

// Gate is an immutable gate descriptor: a kind, its qubit arity, an optional
// rotation parameter and the rule used to build its adjoint.
type Gate struct {
	kind  Kind
	arity int
	param float64
	rule  adjointRule
	pair  Kind // inverse kind when rule == adjPaired
}

var builtins = map[Kind]Gate{
	I:       {kind: I, arity: 1, rule: adjSelf},
	X:       {kind: X, arity: 1, rule: adjSelf},
	Y:       {kind: Y, arity: 1, rule: adjSelf},
	Z:       {kind: Z, arity: 1, rule: adjSelf},
	H:       {kind: H, arity: 1, rule: adjSelf},
	S:       {kind: S, arity: 1, rule: adjPaired, pair: Sdg},
	Sdg:     {kind: Sdg, arity: 1, rule: adjPaired, pair: S},
	T:       {kind: T, arity: 1, rule: adjPaired, pair: Tdg},
	Tdg:     {kind: Tdg, arity: 1, rule: adjPaired, pair: T},
	RX:      {kind: RX, arity: 1, rule: adjNegateParam},
	RY:      {kind: RY, arity: 1, rule: adjNegateParam},
	RZ:      {kind: RZ, arity: 1, rule: adjNegateParam},
	CNOT:    {kind: CNOT, arity: 2, rule: adjSelf},
	CZ:      {kind: CZ, arity: 2, rule: adjSelf},
	Swap:    {kind: Swap, arity: 2, rule: adjSelf},
	Toffoli: {kind: Toffoli, arity: 3, rule: adjSelf},
	Measure: {kind: Measure, arity: 1, rule: adjNone},
}

// NewGate returns the builtin gate descriptor for kind.
// It panics on an unknown kind; use Custom for user-defined gates.
func NewGate(kind Kind) Gate {
	g, ok := builtins[kind]
	if !ok {
		panic(fmt.Sprintf("circuit: unknown builtin gate %q", kind))
	}
	return g
}

// NewRotation returns a parameterized rotation gate (rx, ry or rz) with the
// given angle in radians.
func NewRotation(kind Kind, theta float64) Gate {
	g := NewGate(kind)
	if g.rule != adjNegateParam {
		panic(fmt.Sprintf("circuit: gate %q is not parameterized", kind))
	}
	g.param = theta
	return g
}

// Custom returns a gate descriptor for a user-defined gate with no known
// inverse. Folding such a gate fails unless it is excluded through a
// fidelity of 1.0.
func Custom(kind Kind, arity int) Gate {
	return Gate{kind: kind, arity: arity, rule: adjNone}
}

// CustomSelfInverse returns a user-defined gate declared to be its own
// inverse.
func CustomSelfInverse(kind Kind, arity int) Gate {
	return Gate{kind: kind, arity: arity, rule: adjSelf}
}

// Kind returns the gate class identifier.
func (g Gate) Kind() Kind { return g.kind }

// Arity returns the number of qubits the gate acts on.
func (g Gate) Arity() int { return g.arity }

// Param returns the rotation angle for parameterized gates, 0 otherwise.
func (g Gate) Param() float64 { return g.param }

// IsMeasurement reports whether the gate is a measurement.
func (g Gate) IsMeasurement() bool { return g.kind == Measure }

// Invertible reports whether an efficient adjoint construction is known.
func (g Gate) Invertible() bool { return g.rule != adjNone }

// Adjoint returns the inverse gate, or ErrNoAdjoint when none is known.
func (g Gate) Adjoint() (Gate, error) {
	switch g.rule {
	case adjSelf:
		return g, nil
	case adjNegateParam:
		inv := g
		inv.param = -g.param
		return inv, nil
	case adjPaired:
		inv, ok := builtins[g.pair]
		if !ok {
			return Gate{}, fmt.Errorf("%w: %q pairs with unknown gate %q", ErrNoAdjoint, g.kind, g.pair)
		}
		return inv, nil
	default:
		return Gate{}, fmt.Errorf("%w: %q", ErrNoAdjoint, g.kind)
	}
}

// Equal reports whether two gate descriptors are identical.
func (g Gate) Equal(other Gate) bool { return g == other }

func (g Gate) String() string {
	if g.rule == adjNegateParam {
		return fmt.Sprintf("%s(%g)", g.kind, g.param)
	}
	return string(g.kind)
}
