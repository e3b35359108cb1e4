package zne

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/zetralabs/zetra/observable"
	"github.com/zetralabs/zetra/zne/inference"
	"github.com/zetralabs/zetra/zne/scaling"
)

// Option configures a ZNE run.
type Option func(*config) error

type config struct {
	factory       inference.Factory
	scaleNoise    scaling.Method
	obs           *observable.Observable
	numToAverage  int
	rng           *rand.Rand
	maxIterations int
}

// WithFactory sets the extrapolation factory. Default is a Richardson
// factory over the scale factors 1, 2 and 3.
func WithFactory(f inference.Factory) Option {
	return func(cfg *config) error {
		if f == nil {
			return errors.New("factory must not be nil")
		}
		cfg.factory = f
		return nil
	}
}

// WithScaleNoise sets the noise-scaling method. Default is gate folding at
// random positions.
func WithScaleNoise(m scaling.Method) Option {
	return func(cfg *config) error {
		if m == nil {
			return errors.New("scaling method must not be nil")
		}
		cfg.scaleNoise = m
		return nil
	}
}

// WithObservable sets the observable projected onto measurement counts.
// Required when the executor returns counts rather than scalar expectation
// values.
func WithObservable(o *observable.Observable) Option {
	return func(cfg *config) error {
		if o == nil {
			return errors.New("observable must not be nil")
		}
		cfg.obs = o
		return nil
	}
}

// WithNumToAverage runs each scaled circuit n times and averages the
// outcomes before they reach the factory. Default 1.
func WithNumToAverage(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("number of executions to average must be at least 1")
		}
		cfg.numToAverage = n
		return nil
	}
}

// WithRandomSource sets the random source used by the default random-folding
// method. Ignored when WithScaleNoise overrides the method.
func WithRandomSource(rng *rand.Rand) Option {
	return func(cfg *config) error {
		if rng == nil {
			return errors.New("random source must not be nil")
		}
		cfg.rng = rng
		return nil
	}
}

// WithMaxIterations caps the rounds of an adaptive factory. Default 100.
func WithMaxIterations(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("maximum iterations must be at least 1")
		}
		cfg.maxIterations = n
		return nil
	}
}

const defaultMaxIterations = 100

func newConfig(opts ...Option) (config, error) {
	cfg := config{
		numToAverage:  1,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("apply option: %w", err)
		}
	}
	if cfg.factory == nil {
		f, err := inference.NewRichardsonFactory([]float64{1, 2, 3})
		if err != nil {
			return config{}, err
		}
		cfg.factory = f
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.scaleNoise == nil {
		cfg.scaleNoise = scaling.GatesAtRandom(cfg.rng)
	}
	return cfg, nil
}
