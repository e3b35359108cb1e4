package circuit

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// serialization version, bumped on layout changes
const marshalVersion = 1

type gateDTO struct {
	Kind  string  `cbor:"1,keyasint"`
	Arity int     `cbor:"2,keyasint"`
	Param float64 `cbor:"3,keyasint,omitempty"`
	Rule  uint8   `cbor:"4,keyasint"`
	Pair  string  `cbor:"5,keyasint,omitempty"`
}

type operationDTO struct {
	Gate   gateDTO `cbor:"1,keyasint"`
	Qubits []int   `cbor:"2,keyasint"`
}

type circuitDTO struct {
	Version int              `cbor:"1,keyasint"`
	Moments [][]operationDTO `cbor:"2,keyasint"`
}

// MarshalBinary serializes the circuit with a deterministic CBOR encoding.
func (c Circuit) MarshalBinary() ([]byte, error) {
	dto := circuitDTO{Version: marshalVersion, Moments: make([][]operationDTO, len(c.moments))}
	for i, m := range c.moments {
		dto.Moments[i] = make([]operationDTO, len(m))
		for j, op := range m {
			dto.Moments[i][j] = operationDTO{
				Gate: gateDTO{
					Kind:  string(op.Gate.kind),
					Arity: op.Gate.arity,
					Param: op.Gate.param,
					Rule:  uint8(op.Gate.rule),
					Pair:  string(op.Gate.pair),
				},
				Qubits: op.Qubits,
			}
		}
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return enc.Marshal(dto)
}

// UnmarshalBinary deserializes a circuit produced by MarshalBinary.
func (c *Circuit) UnmarshalBinary(data []byte) error {
	dm, err := cbor.DecOptions{MaxArrayElements: 1 << 24}.DecMode()
	if err != nil {
		return err
	}
	var dto circuitDTO
	if err := dm.Unmarshal(data, &dto); err != nil {
		return err
	}
	if dto.Version != marshalVersion {
		return fmt.Errorf("unsupported circuit serialization version %d", dto.Version)
	}
	moments := make([]Moment, len(dto.Moments))
	for i, m := range dto.Moments {
		moments[i] = make(Moment, len(m))
		for j, op := range m {
			if op.Gate.Rule > uint8(adjPaired) {
				return fmt.Errorf("invalid adjoint rule %d for gate %q", op.Gate.Rule, op.Gate.Kind)
			}
			g := Gate{
				kind:  Kind(op.Gate.Kind),
				arity: op.Gate.Arity,
				param: op.Gate.Param,
				rule:  adjointRule(op.Gate.Rule),
				pair:  Kind(op.Gate.Pair),
			}
			if len(op.Qubits) != g.arity {
				return fmt.Errorf("gate %q expects %d qubits, got %d", g.kind, g.arity, len(op.Qubits))
			}
			seen := make(map[int]struct{}, len(op.Qubits))
			for _, q := range op.Qubits {
				if q < 0 {
					return fmt.Errorf("gate %q has negative qubit index %d", g.kind, q)
				}
				if _, dup := seen[q]; dup {
					return fmt.Errorf("gate %q repeats qubit %d", g.kind, q)
				}
				seen[q] = struct{}{}
			}
			decoded := Operation{Gate: g, Qubits: op.Qubits}
			if moments[i][:j].overlaps(decoded) {
				return fmt.Errorf("operations in moment %d share a qubit: %s", i, decoded)
			}
			moments[i][j] = decoded
		}
	}
	c.moments = moments
	return nil
}
