// Package zne orchestrates zero-noise extrapolation: a target circuit is run
// at several amplified noise levels and the measured expectation values are
// extrapolated back to the zero-noise limit.
package zne

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zetralabs/zetra/circuit"
	"github.com/zetralabs/zetra/debug"
	"github.com/zetralabs/zetra/executor"
	"github.com/zetralabs/zetra/logger"
	"github.com/zetralabs/zetra/observable"
	"github.com/zetralabs/zetra/zne/inference"
)

// ErrNotConverged is returned when an adaptive factory still wants more data
// after the configured maximum number of rounds.
var ErrNotConverged = errors.New("factory did not converge within the iteration limit")

var errObservableRequired = errors.New("executor returned measurement counts but no observable was configured")

// ExecuteWithZNE estimates the zero-noise expectation value of c.
//
// The circuit is scaled to each factor the factory asks for, every scaled
// circuit is run through exec, and the factory extrapolates the recorded
// values to scale factor zero. Batched factories have their executions
// dispatched concurrently; adaptive factories run strictly sequentially
// because each scale factor depends on the values recorded so far.
func ExecuteWithZNE(ctx context.Context, c circuit.Circuit, exec executor.Executor, opts ...Option) (float64, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return 0, err
	}
	cfg.factory.Reset()

	if planner, ok := cfg.factory.(inference.BatchPlanner); ok {
		return runBatched(ctx, c, exec, cfg, planner.ScaleFactors())
	}
	return runAdaptive(ctx, c, exec, cfg)
}

// MitigateExecutor wraps exec so that every Execute call transparently
// returns a zero-noise extrapolated expectation value.
func MitigateExecutor(exec executor.Executor, opts ...Option) executor.Func {
	return func(ctx context.Context, c circuit.Circuit) (executor.Result, error) {
		v, err := ExecuteWithZNE(ctx, c, exec, opts...)
		if err != nil {
			return executor.Result{}, err
		}
		return executor.Scalar(v), nil
	}
}

// runBatched scales the circuit to every planned factor up front and
// dispatches all executions at once.
func runBatched(ctx context.Context, c circuit.Circuit, exec executor.Executor, cfg config, scaleFactors []float64) (float64, error) {
	log := logger.Logger()
	log.Debug().
		Int("scaleFactors", len(scaleFactors)).
		Int("numToAverage", cfg.numToAverage).
		Msg("running batched zero-noise extrapolation")

	circuits := make([]circuit.Circuit, 0, len(scaleFactors)*cfg.numToAverage)
	for _, sf := range scaleFactors {
		scaled, err := cfg.scaleNoise(c, sf)
		if err != nil {
			return 0, fmt.Errorf("scale noise to %g: %w", sf, err)
		}
		for i := 0; i < cfg.numToAverage; i++ {
			circuits = append(circuits, scaled)
		}
	}

	results, err := dispatch(ctx, exec, circuits)
	if err != nil {
		return 0, err
	}

	for i, sf := range scaleFactors {
		group := results[i*cfg.numToAverage : (i+1)*cfg.numToAverage]
		value, err := average(group, cfg.obs)
		if err != nil {
			return 0, err
		}
		obs := inference.Observation{ScaleFactor: sf, Value: value, NumAveraged: cfg.numToAverage}
		if err := cfg.factory.Record(obs); err != nil {
			return 0, err
		}
	}
	return cfg.factory.Reduce()
}

// runAdaptive alternates Next, execute and Record until the factory
// converges or the iteration limit is hit.
func runAdaptive(ctx context.Context, c circuit.Circuit, exec executor.Executor, cfg config) (float64, error) {
	log := logger.Logger()
	log.Debug().
		Int("maxIterations", cfg.maxIterations).
		Int("numToAverage", cfg.numToAverage).
		Msg("running adaptive zero-noise extrapolation")

	for i := 0; i < cfg.maxIterations; i++ {
		if cfg.factory.Converged() {
			return cfg.factory.Reduce()
		}
		sf, err := cfg.factory.Next()
		if err != nil {
			return 0, err
		}
		scaled, err := cfg.scaleNoise(c, sf)
		if err != nil {
			return 0, fmt.Errorf("scale noise to %g: %w", sf, err)
		}
		circuits := make([]circuit.Circuit, cfg.numToAverage)
		for j := range circuits {
			circuits[j] = scaled
		}
		results, err := executor.ExecuteAll(ctx, exec, circuits)
		if err != nil {
			return 0, err
		}
		value, err := average(results, cfg.obs)
		if err != nil {
			return 0, err
		}
		obs := inference.Observation{ScaleFactor: sf, Value: value, NumAveraged: cfg.numToAverage}
		if err := cfg.factory.Record(obs); err != nil {
			return 0, err
		}
	}
	if !cfg.factory.Converged() {
		return 0, fmt.Errorf("%w: %d rounds", ErrNotConverged, cfg.maxIterations)
	}
	return cfg.factory.Reduce()
}

// dispatch runs circuits through exec. A batch executor receives a single
// submission; a plain executor is fanned out over goroutines, one per
// circuit, with results positionally aligned.
func dispatch(ctx context.Context, exec executor.Executor, circuits []circuit.Circuit) ([]executor.Result, error) {
	if _, ok := exec.(executor.BatchExecutor); ok {
		return executor.ExecuteAll(ctx, exec, circuits)
	}

	results := make([]executor.Result, len(circuits))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range circuits {
		i, sc := i, sc
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("executor panicked: %v\n%s", r, debug.Stack())
				}
			}()
			r, err := exec.Execute(gctx, sc)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// average collapses the results of repeated executions at one scale factor
// into a single expectation value. Scalar results are averaged directly;
// count results are merged first and projected through obs once, so every
// shot carries equal weight.
func average(results []executor.Result, obs *observable.Observable) (float64, error) {
	if len(results) == 0 {
		return 0, errors.New("no results to average")
	}
	if results[0].IsScalar() {
		var sum float64
		for _, r := range results {
			if !r.IsScalar() {
				return 0, errors.New("executor mixed scalar and count results")
			}
			sum += r.Value
		}
		return sum / float64(len(results)), nil
	}
	if obs == nil {
		return 0, errObservableRequired
	}
	merged := executor.Counts{}
	for _, r := range results {
		if r.IsScalar() {
			return 0, errors.New("executor mixed scalar and count results")
		}
		merged = merged.Merge(r.Counts)
	}
	return obs.Expectation(merged)
}
