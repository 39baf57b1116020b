package sharedfs

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/deployment"
	"sunbeam/internal/juju"
	"sunbeam/internal/machine"
	"sunbeam/internal/manifest"
	"sunbeam/internal/step"
	"sunbeam/internal/terraform"
)

const (
	// ManilaDataPlan deploys manila-data on the storage machines.
	ManilaDataPlan = "manila-data-plan"

	// ManilaDataConfigKey stores the manila-data plan variables.
	ManilaDataConfigKey = "TerraformVarsManilaDataPlan"

	// ManilaDataApplication is the machine application name.
	ManilaDataApplication = "manila-data"

	// ManilaDataTimeout bounds the manila-data waits. Several units may be
	// deployed in parallel.
	ManilaDataTimeout = 1800 * time.Second
)

// offerOutputs maps manila-data variables to the openstack plan outputs
// holding the offer urls.
var offerOutputs = map[string]string{
	"keystone-offer-url": "keystone-offer-url",
	"database-offer-url": "manila-data-database-offer-url",
	"amqp-offer-url":     "rabbitmq-offer-url",
}

// offers reads the control plane offers manila-data integrates with from the
// openstack plan outputs, once.
type offers struct {
	tf *terraform.Helper

	once sync.Once
	urls map[string]any
	err  error
}

func (o *offers) get(ctx context.Context) (map[string]any, error) {
	o.once.Do(func() {
		outputs, err := o.tf.Output(ctx)
		if err != nil {
			o.err = err
			return
		}
		o.urls = make(map[string]any, len(offerOutputs))
		for variable, output := range offerOutputs {
			o.urls[variable] = outputs[output]
		}
	})
	return o.urls, o.err
}

// complete reports whether every offer is known.
func complete(urls map[string]any) bool {
	if len(urls) == 0 {
		return false
	}
	for _, url := range urls {
		if s, ok := url.(string); !ok || s == "" {
			return false
		}
	}
	return true
}

// acceptedStatus accepts blocked as well as active while an offer is
// missing or differs from the applied one: the unit waits for the
// integration to be refreshed.
func acceptedStatus(store *clusterd.Store, o *offers) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		accepted := []string{juju.StatusActive}
		urls, err := o.get(ctx)
		if err != nil {
			return nil, err
		}
		applied, err := clusterd.ReadOrEmpty(store, ManilaDataConfigKey)
		if err != nil {
			return nil, err
		}
		stale := !complete(urls)
		for variable, url := range urls {
			if current, ok := applied[variable]; !ok || current != url {
				stale = true
			}
		}
		if stale {
			accepted = append(accepted, juju.StatusBlocked)
		}
		return accepted, nil
	}
}

// manilaDataTfvars places manila-data on the first storage machine and binds
// its endpoints to the deployment spaces.
func manilaDataTfvars(d *deployment.Deployment, o *offers) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		ids, err := d.Store.MachineIDs(clusterd.RoleStorage)
		if err != nil {
			return nil, err
		}
		machineIDs := []string{}
		if len(ids) > 0 {
			machineIDs = append(machineIDs, strconv.Itoa(slices.Min(ids)))
		}

		spaces := d.Config.Spaces
		vars := map[string]any{
			"endpoint_bindings": []map[string]string{
				{"space": spaces.Management},
				{"endpoint": "amqp", "space": spaces.Internal},
				{"endpoint": "database", "space": spaces.Internal},
				{"endpoint": "identity-credentials", "space": spaces.Internal},
			},
			"charm-manila-data-config": map[string]any{},
			"machine_ids":              machineIDs,
		}

		urls, err := o.get(ctx)
		if err != nil {
			return nil, err
		}
		for variable, url := range urls {
			vars[variable] = url
		}
		return vars, nil
	}
}

// NewDeployManilaDataStep deploys manila-data in model.
func NewDeployManilaDataStep(d *deployment.Deployment, tf *terraform.Helper, model string) *machine.DeployApplicationStep {
	o := &offers{tf: d.TfHelper(manifest.OpenStackPlan)}
	return machine.NewDeployApplicationStep(d, tf, machine.DeployConfig{
		Name:           "Deploy Manila Data",
		Description:    "Deploying Manila Data",
		ConfigKey:      ManilaDataConfigKey,
		Application:    ManilaDataApplication,
		Model:          model,
		Timeout:        ManilaDataTimeout,
		AcceptedStatus: acceptedStatus(d.Store, o),
		ExtraTfvars:    manilaDataTfvars(d, o),
	})
}

// NewDestroyManilaDataStep destroys manila-data in model.
//
// Integrations with the control plane offers are dropped from the state
// before destroying: the provider cannot remove a cross model integration
// whose offer side is already gone.
func NewDestroyManilaDataStep(d *deployment.Deployment, tf *terraform.Helper, model string) *machine.DestroyApplicationStep {
	return machine.NewDestroyApplicationStep(d, tf, machine.DestroyConfig{
		Name:          "Destroy Manila Data",
		Description:   "Destroying Manila Data",
		ConfigKey:     ManilaDataConfigKey,
		Applications:  []string{ManilaDataApplication},
		Model:         model,
		Timeout:       ManilaDataTimeout,
		BeforeDestroy: forgetIntegrations(d, tf),
	})
}

func forgetIntegrations(d *deployment.Deployment, tf *terraform.Helper) func(context.Context) step.Result {
	return func(ctx context.Context) step.Result {
		resources, err := tf.StateList(ctx)
		if err != nil {
			d.Logger.Debug().Err(err).Msg("Failed to list terraform state")
			return step.Failed("Failed to list terraform state")
		}
		for _, resource := range resources {
			if !strings.Contains(resource, "integration") {
				continue
			}
			if err := tf.StateRm(ctx, resource); err != nil {
				d.Logger.Debug().Err(err).Str("resource", resource).Msg("Failed to remove resource")
				return step.Failed(fmt.Sprintf("Failed to remove resource %s from state", resource))
			}
		}
		return step.Completed()
	}
}
