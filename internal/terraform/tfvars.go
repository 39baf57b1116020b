package terraform

import (
	"context"
	"maps"

	"github.com/juju/errors"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/manifest"
)

// ConfigStore persists plan variables. clusterd.Store implements it.
type ConfigStore interface {
	Read(key string) (map[string]any, error)
	Write(key string, value map[string]any) error
}

// UpdateTfvarsAndApply merges the persisted variables under configKey with
// the manifest's charm attributes for this plan and then overrides, persists
// the result and applies it.
func (h *Helper) UpdateTfvarsAndApply(ctx context.Context, store ConfigStore, m *manifest.Manifest, configKey string, overrides map[string]any) error {
	return h.updateAndApply(ctx, store, m, configKey, nil, overrides)
}

// UpdatePartialTfvarsAndApply is UpdateTfvarsAndApply restricted to the
// manifest attributes of charms, with no overrides.
func (h *Helper) UpdatePartialTfvarsAndApply(ctx context.Context, store ConfigStore, m *manifest.Manifest, charms []string, configKey string) error {
	if charms == nil {
		charms = []string{}
	}
	return h.updateAndApply(ctx, store, m, configKey, charms, nil)
}

func (h *Helper) updateAndApply(ctx context.Context, store ConfigStore, m *manifest.Manifest, configKey string, charms []string, overrides map[string]any) error {
	vars, err := clusterd.ReadOrEmpty(store, configKey)
	if err != nil {
		return errors.Annotatef(err, "reading %s", configKey)
	}
	if m != nil {
		maps.Copy(vars, m.Tfvars(h.tfvarMap, h.plan, charms))
	}
	maps.Copy(vars, overrides)

	if err := store.Write(configKey, vars); err != nil {
		return errors.Annotatef(err, "writing %s", configKey)
	}
	h.logger.Debug().Str("config_key", configKey).Int("vars", len(vars)).Msg("Applying plan")
	return h.Apply(ctx, vars)
}
