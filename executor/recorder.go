package executor

import (
	"context"
	"sync"

	"github.com/zetralabs/zetra/circuit"
)

// Call is one recorded executor invocation.
type Call struct {
	Circuit circuit.Circuit
	Result  Result
}

// Recorder wraps an executor and retains every circuit submitted and every
// raw result returned, for auditing how many real executions a mitigation
// run performed. Safe for concurrent use.
type Recorder struct {
	inner Executor

	mu    sync.Mutex
	calls []Call
}

// NewRecorder wraps exec.
func NewRecorder(exec Executor) *Recorder {
	return &Recorder{inner: exec}
}

func (r *Recorder) Execute(ctx context.Context, c circuit.Circuit) (Result, error) {
	res, err := r.inner.Execute(ctx, c)
	if err != nil {
		return Result{}, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, Call{Circuit: c, Result: res})
	r.mu.Unlock()
	return res, nil
}

// ExecuteBatch delegates to the wrapped executor's batch entry point when it
// has one, otherwise runs the circuits one by one.
func (r *Recorder) ExecuteBatch(ctx context.Context, cs []circuit.Circuit) ([]Result, error) {
	b, ok := r.inner.(BatchExecutor)
	if !ok {
		res := make([]Result, len(cs))
		for i, c := range cs {
			out, err := r.Execute(ctx, c)
			if err != nil {
				return nil, err
			}
			res[i] = out
		}
		return res, nil
	}
	res, err := b.ExecuteBatch(ctx, cs)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	for i := range cs {
		r.calls = append(r.calls, Call{Circuit: cs[i], Result: res[i]})
	}
	r.mu.Unlock()
	return res, nil
}

// CallCount returns the number of recorded executions.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Calls returns a copy of the recorded executions in completion order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}
