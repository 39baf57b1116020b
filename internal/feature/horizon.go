package feature

import (
	"slices"

	"sunbeam/internal/clusterd"
)

const horizonPluginsVar = "horizon-plugins"

// AddHorizonPlugin returns the horizon-plugins variable of the plan stored
// under configKey with plugin added.
func AddHorizonPlugin(store *clusterd.Store, configKey, plugin string) (map[string]any, error) {
	plugins, err := horizonPlugins(store, configKey)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(plugins, plugin) {
		plugins = append(plugins, plugin)
	}
	slices.Sort(plugins)
	return map[string]any{horizonPluginsVar: plugins}, nil
}

// RemoveHorizonPlugin returns the horizon-plugins variable of the plan
// stored under configKey with plugin removed.
func RemoveHorizonPlugin(store *clusterd.Store, configKey, plugin string) (map[string]any, error) {
	plugins, err := horizonPlugins(store, configKey)
	if err != nil {
		return nil, err
	}
	plugins = slices.DeleteFunc(plugins, func(p string) bool { return p == plugin })
	slices.Sort(plugins)
	return map[string]any{horizonPluginsVar: plugins}, nil
}

func horizonPlugins(store *clusterd.Store, configKey string) ([]string, error) {
	tfvars, err := clusterd.ReadOrEmpty(store, configKey)
	if err != nil {
		return nil, err
	}
	plugins := []string{}
	switch v := tfvars[horizonPluginsVar].(type) {
	case []string:
		plugins = append(plugins, v...)
	case []any:
		for _, p := range v {
			if s, ok := p.(string); ok {
				plugins = append(plugins, s)
			}
		}
	}
	return plugins, nil
}
