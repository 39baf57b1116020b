// Package router routes feature commands to deployment plans.
//
// The router maps feature names to the registered [feature.Feature] values and
// decides, from the feature state recorded in the cluster store, whether an
// enable or disable request needs a plan at all. It serves as the central
// decision point between the command line and the lifecycle executor.
//
// Key types:
//   - [Router] - the feature registry
//   - [Plan] - the steps of one action on one feature, and the state to
//     record once they succeed
package router

import (
	"errors"
	"fmt"
	"sort"

	"sunbeam/internal/deployment"
	"sunbeam/internal/feature"
	"sunbeam/internal/feature/sharedfs"
)

// Sentinel errors for feature routing.
var (
	// ErrAlreadyEnabled indicates the feature is enabled and no plan is
	// needed. Callers should report and skip rather than fail.
	ErrAlreadyEnabled = errors.New("feature is already enabled")

	// ErrAlreadyDisabled indicates the feature is not enabled and no plan is
	// needed. Callers should report and skip rather than fail.
	ErrAlreadyDisabled = errors.New("feature is already disabled")

	// ErrUnknownFeature indicates no feature is registered under the name,
	// likely a typo on the command line.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Router routes feature names to features.
//
// Create with [NewRouter] for an explicit set of features or [Default] for
// the features shipped with sunbeam.
type Router struct {
	features map[string]feature.Feature
}

// NewRouter creates a [Router] over features. A later feature replaces an
// earlier one with the same name.
func NewRouter(features ...feature.Feature) *Router {
	r := &Router{features: make(map[string]feature.Feature, len(features))}
	for _, f := range features {
		r.features[f.Name()] = f
	}
	return r
}

// Default returns a [Router] over the features shipped with sunbeam.
func Default() *Router {
	return NewRouter(sharedfs.New())
}

// Names returns the registered feature names, sorted.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named feature.
//
// Returns [ErrUnknownFeature] when no feature is registered under name.
func (r *Router) Get(name string) (feature.Feature, error) {
	f, ok := r.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	return f, nil
}

// Route returns the plan running action on the named feature.
//
// Returns [ErrAlreadyEnabled] when enabling an enabled feature and
// [ErrAlreadyDisabled] when disabling one that is not enabled (caller
// should skip, not fail). Returns [ErrUnknownFeature] for unknown names.
func (r *Router) Route(d *deployment.Deployment, action Action, name string) (*Plan, error) {
	f, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	enabled, err := d.Store.FeatureEnabled(name)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionEnable:
		if enabled {
			return nil, ErrAlreadyEnabled
		}
		return newPlan(f, action, f.EnableSteps(d)), nil
	case ActionDisable:
		if !enabled {
			return nil, ErrAlreadyDisabled
		}
		return newPlan(f, action, f.DisableSteps(d)), nil
	}
	return nil, fmt.Errorf("action %s cannot be routed to a single feature", action)
}

// Upgrade returns the upgrade plans of the enabled features in name order.
// Features with nothing to refresh are left out.
func (r *Router) Upgrade(d *deployment.Deployment, release bool) ([]*Plan, error) {
	enabled, err := d.Store.EnabledFeatures()
	if err != nil {
		return nil, err
	}
	var plans []*Plan
	for _, name := range enabled {
		f, ok := r.features[name]
		if !ok {
			d.Logger.Warn().Str("feature", name).Msg("Enabled feature is not registered")
			continue
		}
		if steps := f.UpgradeSteps(d, release); len(steps) > 0 {
			plans = append(plans, newPlan(f, ActionUpgrade, steps))
		}
	}
	return plans, nil
}
