// Package zetra implements zero-noise extrapolation (ZNE), a quantum error
// mitigation technique that estimates noiseless expectation values from
// executions of a circuit at several amplified noise levels.
//
// The library is organized around three pieces:
//   - circuit: an immutable gate-sequence intermediate representation
//   - zne/scaling: noise-scaling transformations (unitary folding, identity
//     layer insertion) that increase a circuit's noise sensitivity without
//     changing its ideal unitary
//   - zne/inference: extrapolation factories that fit the noise-vs-result
//     curve and evaluate it at the zero-noise limit
//
// zne.ExecuteWithZNE ties them together against a caller-supplied executor.
package zetra

import (
	"github.com/blang/semver/v4"
)

var Version = semver.MustParse("0.3.0")
