package router

import (
	"sunbeam/internal/clusterd"
	"sunbeam/internal/feature"
	"sunbeam/internal/step"
)

// Action is what a plan does to a feature.
type Action string

const (
	ActionEnable  Action = "enable"
	ActionDisable Action = "disable"
	ActionUpgrade Action = "upgrade"
)

// Plan is the sequence of steps running one action on one feature.
//
// The lifecycle executor runs Steps; once they all succeed the caller calls
// [Plan.Commit] to record the feature's new state.
type Plan struct {
	// Feature is the feature the plan acts on.
	Feature feature.Feature

	// Action is the action the steps implement.
	Action Action

	// Steps are run in order by the executor.
	Steps []step.Step
}

func newPlan(f feature.Feature, action Action, steps []step.Step) *Plan {
	return &Plan{Feature: f, Action: action, Steps: steps}
}

// Name returns the plan name used in logs and metrics, e.g.
// "enable shared-filesystem".
func (p *Plan) Name() string {
	return string(p.Action) + " " + p.Feature.Name()
}

// Commit records the feature state reached by a successful plan. Upgrades
// leave the state untouched.
func (p *Plan) Commit(store *clusterd.Store) error {
	switch p.Action {
	case ActionEnable:
		return store.SetFeatureEnabled(p.Feature.Name(), true)
	case ActionDisable:
		return store.SetFeatureEnabled(p.Feature.Name(), false)
	}
	return nil
}
