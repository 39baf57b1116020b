package juju

import (
	"context"
	"fmt"
	"sync"
)

// Absent in a status script means the application does not exist at that query.
const Absent = ""

// MockClient implements [Client] with scripted application statuses.
//
// Each application is given a sequence of statuses with [MockClient.Script].
// The script is read through two independent cursors. Model snapshots
// (GetApplications and GetUnits, what the poller queries) advance one
// cursor; single application reads (GetApplication, what the status
// reporter and the skip checks query) advance the other. A reporter
// running beside a wait therefore never consumes the wait's entries, and
// the outcome of a test does not depend on which goroutine queried first.
// The last entry repeats forever. The [Absent] entry makes the application
// not found. Every scripted application gets one unit "<name>/0" whose
// workload status follows the script and whose agent status is idle.
type MockClient struct {
	mu      sync.Mutex
	charms  map[string]string
	scripts map[string][]string
	cursor  map[string]int
	single  map[string]int
	units   map[string]map[string]Unit

	// QueryErr, when set, is returned by every query.
	QueryErr error

	// RemoveUnitErr, when set, is returned by RemoveUnit.
	RemoveUnitErr error

	queries      int
	removedUnits []string
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		charms:  make(map[string]string),
		scripts: make(map[string][]string),
		cursor:  make(map[string]int),
		single:  make(map[string]int),
		units:   make(map[string]map[string]Unit),
	}
}

// Script sets the status sequence of app, deployed from charm.
func (m *MockClient) Script(app, charm string, statuses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charms[app] = charm
	m.scripts[app] = statuses
	m.cursor[app] = 0
	m.single[app] = 0
}

// SetUnits replaces the units reported for app.
func (m *MockClient) SetUnits(app string, units ...Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := make(map[string]Unit, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	m.units[app] = byName
}

// observe consumes one script entry of app from cursor. Callers hold m.mu.
func (m *MockClient) observe(cursor map[string]int, name string) (*Application, bool) {
	script, ok := m.scripts[name]
	if !ok || len(script) == 0 {
		return nil, false
	}
	idx := cursor[name]
	if idx >= len(script) {
		idx = len(script) - 1
	}
	cursor[name]++
	status := script[idx]
	if status == Absent {
		return nil, false
	}

	units := m.units[name]
	if units == nil {
		unitName := fmt.Sprintf("%s/0", name)
		units = map[string]Unit{unitName: {
			Name:           unitName,
			AgentStatus:    StatusIdle,
			WorkloadStatus: status,
		}}
	}
	copied := make(map[string]Unit, len(units))
	for k, v := range units {
		copied[k] = v
	}
	return &Application{
		Name:   name,
		Charm:  m.charms[name],
		Status: status,
		Units:  copied,
	}, true
}

// GetApplication implements [Client].
func (m *MockClient) GetApplication(_ context.Context, model, name string) (*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	app, ok := m.observe(m.single, name)
	if !ok {
		return nil, &ApplicationNotFoundError{Application: name, Model: model}
	}
	return app, nil
}

// GetApplications implements [Client].
func (m *MockClient) GetApplications(_ context.Context, _ string) (map[string]*Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	apps := make(map[string]*Application)
	for name := range m.scripts {
		if app, ok := m.observe(m.cursor, name); ok {
			apps[name] = app
		}
	}
	return apps, nil
}

// GetUnits implements [Client].
func (m *MockClient) GetUnits(_ context.Context, _ string, apps []string) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	snapshot := make(map[string]*Application)
	for _, name := range apps {
		if app, ok := m.observe(m.cursor, name); ok {
			snapshot[name] = app
		}
	}
	return unitsOf(snapshot, apps), nil
}

// RemoveUnit implements [Client].
func (m *MockClient) RemoveUnit(_ context.Context, _, unit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveUnitErr != nil {
		return m.RemoveUnitErr
	}
	m.removedUnits = append(m.removedUnits, unit)
	return nil
}

// Queries returns the number of queries served.
func (m *MockClient) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// RemovedUnits returns the units passed to RemoveUnit.
func (m *MockClient) RemovedUnits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removedUnits...)
}

// Ensure MockClient implements Client.
var _ Client = (*MockClient)(nil)
