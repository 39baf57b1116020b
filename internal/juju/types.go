// Package juju observes and drives applications in a Juju model.
//
// This package reads model status through the juju CLI's JSON output and
// builds the readiness waits that feature steps block on: waiting for
// applications to reach a desired status, for applications to disappear,
// and for units to reach an agent and workload status pair. While a wait is
// running a [StatusReporter] streams status lines to a live progress sink.
//
// Key types:
//   - [Client]: Interface for querying and modifying a model
//   - [Poller]: Runs the readiness waits against a [Client]
//   - [StatusReporter]: Scoped background worker feeding a [StatusQueue]
//   - [WaitTimeoutError], [WaitError]: Wait failures
//
// For testing, use [MockClient] which scripts status sequences without a
// controller.
package juju

import (
	"context"
	"fmt"
	"sort"

	"github.com/juju/errors"
)

// Status values reported by juju for applications, unit workloads and unit agents.
const (
	StatusActive      = "active"
	StatusBlocked     = "blocked"
	StatusWaiting     = "waiting"
	StatusMaintenance = "maintenance"
	StatusError       = "error"
	StatusUnknown     = "unknown"
	StatusIdle        = "idle"
	StatusExecuting   = "executing"
	StatusAllocating  = "allocating"
)

// Unit is a single unit of an application.
type Unit struct {
	// Name is the unit name, e.g. "keystone/0".
	Name string

	// Machine is the machine id for machine units, empty on kubernetes.
	Machine string

	// AgentStatus is the juju agent status, e.g. "idle".
	AgentStatus string

	// WorkloadStatus is the charm reported status, e.g. "active".
	WorkloadStatus string

	// Message is the workload status message.
	Message string
}

// Application is an application deployed in a model.
type Application struct {
	// Name is the application name, e.g. "keystone".
	Name string

	// Charm is the charm name, e.g. "keystone-k8s".
	Charm string

	// Status is the application status.
	Status string

	// Message is the application status message.
	Message string

	// Units maps unit names to units.
	Units map[string]Unit
}

// UnitNames returns the application's unit names, sorted.
func (a *Application) UnitNames() []string {
	names := make([]string, 0, len(a.Units))
	for name := range a.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client queries and modifies a model.
//
// Query methods return current status, never a cached copy.
type Client interface {
	// GetApplication returns the named application.
	// Returns an [*ApplicationNotFoundError] if it does not exist.
	GetApplication(ctx context.Context, model, name string) (*Application, error)

	// GetApplications returns every application in the model keyed by name.
	GetApplications(ctx context.Context, model string) (map[string]*Application, error)

	// GetUnits returns the units of the named applications ordered by unit name.
	GetUnits(ctx context.Context, model string, apps []string) ([]Unit, error)

	// RemoveUnit removes the named unit.
	RemoveUnit(ctx context.Context, model, unit string) error
}

// ApplicationNotFoundError is returned when an application does not exist
// in a model. It matches juju/errors NotFound.
type ApplicationNotFoundError struct {
	Application string
	Model       string
}

// Error implements error.
func (e *ApplicationNotFoundError) Error() string {
	return fmt.Sprintf("application %q not found in model %q", e.Application, e.Model)
}

// Is lets errors.Is(err, errors.NotFound) match.
func (e *ApplicationNotFoundError) Is(target error) bool {
	return target == errors.NotFound
}

// IsApplicationNotFound reports whether err is or wraps an [*ApplicationNotFoundError].
func IsApplicationNotFound(err error) bool {
	var notFound *ApplicationNotFoundError
	return errors.As(err, &notFound)
}
