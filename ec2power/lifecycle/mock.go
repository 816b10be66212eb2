package lifecycle

import (
	"context"
	"slices"
	"sync"
)

// Call records a single lifecycle request made against a MockController.
type Call struct {
	Op          string
	InstanceIDs []string
}

// MockController records calls and returns Err (if set) from every call.
type MockController struct {
	Err error

	mu    sync.Mutex
	calls []Call
}

// NewMockController creates a mock that fails every call with err, or
// succeeds when err is nil.
func NewMockController(err error) *MockController {
	return &MockController{Err: err}
}

func (m *MockController) StartInstances(ctx context.Context, instanceIDs []string) error {
	return m.record("StartInstances", instanceIDs)
}

func (m *MockController) StopInstances(ctx context.Context, instanceIDs []string) error {
	return m.record("StopInstances", instanceIDs)
}

func (m *MockController) record(op string, instanceIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: op, InstanceIDs: slices.Clone(instanceIDs)})
	return m.Err
}

// Calls returns a copy of the recorded calls in order.
func (m *MockController) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}
