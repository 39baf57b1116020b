package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockRunner returns canned results keyed by the joined command line.
//
// Results registered with [MockRunner.AddResult] are returned in order for
// repeated invocations of the same command line; the last one is reused once
// the queue is drained. Unregistered command lines return an error.
type MockRunner struct {
	mu      sync.Mutex
	results map[string][]Result
	errs    map[string]error
	calls   []Call
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		results: make(map[string][]Result),
		errs:    make(map[string]error),
	}
}

func key(command string, args []string) string {
	return strings.Join(append([]string{command}, args...), " ")
}

// AddResult queues a result for command with args.
func (m *MockRunner) AddResult(command string, args []string, result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(command, args)
	m.results[k] = append(m.results[k], result)
}

// AddError makes command with args fail to start.
func (m *MockRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key(command, args)] = err
}

// Run implements [Runner].
func (m *MockRunner) Run(_ context.Context, dir, command string, args ...string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Dir: dir, Command: command, Args: args})
	k := key(command, args)
	if err, ok := m.errs[k]; ok {
		return Result{}, err
	}

	queue, ok := m.results[k]
	if !ok || len(queue) == 0 {
		return Result{}, fmt.Errorf("mock: no result registered for %q", k)
	}
	r := queue[0]
	if len(queue) > 1 {
		m.results[k] = queue[1:]
	}
	return r, nil
}

// Calls returns the recorded invocations in order.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Ensure MockRunner implements Runner.
var _ Runner = (*MockRunner)(nil)
