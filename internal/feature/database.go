package feature

import (
	"fmt"
	"math"
	"slices"

	"sunbeam/internal/clusterd"
)

// State keys shared with the control plane deployment.
const (
	DatabaseResourcesKey = "DatabaseResources"
	TopologyKey          = "Topology"
)

// Database topologies.
const (
	DatabaseSingle = "single"
	DatabaseMulti  = "multi"
)

// Connection sizing of a database service.
const (
	DatabaseMaxPoolSize      = 2
	databaseMaxOverflow      = 10
	databaseOversizeFactor   = 1.2
	databaseBufferSize       = 600
	databaseBaseMemoryMiB    = 1024
	databaseConnectionMemKiB = 12 * 1024
)

// DatabaseResources is the sizing of one database service.
type DatabaseResources struct {
	MaxConnections int `yaml:"max_connections"`
	MemoryMiB      int `yaml:"memory"`
}

// ComputeResourcesForService sizes a database service from the number of
// processes of each charm connecting to it.
func ComputeResourcesForService(processes map[string]int, maxPoolSize int) DatabaseResources {
	total := 0
	for _, n := range processes {
		total += n * (maxPoolSize + databaseMaxOverflow)
	}
	connections := int(math.Ceil(float64(total)*databaseOversizeFactor)) + databaseBufferSize
	return DatabaseResources{
		MaxConnections: connections,
		MemoryMiB:      databaseBaseMemoryMiB + connections*databaseConnectionMemKiB/1024,
	}
}

// DatabaseTopology returns the topology recorded at bootstrap, single when
// none was recorded.
func DatabaseTopology(store *clusterd.Store) (string, error) {
	topology, err := clusterd.ReadOrEmpty(store, TopologyKey)
	if err != nil {
		return "", err
	}
	if db, ok := topology["database"].(string); ok && db != "" {
		return db, nil
	}
	return DatabaseSingle, nil
}

// readDatabaseResources returns the persisted sizing keyed by service.
func readDatabaseResources(store *clusterd.Store) (map[string]DatabaseResources, error) {
	raw, err := clusterd.ReadOrEmpty(store, DatabaseResourcesKey)
	if err != nil {
		return nil, err
	}
	resources := make(map[string]DatabaseResources, len(raw))
	for service, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid database resources for %s", service)
		}
		resources[service] = DatabaseResources{
			MaxConnections: toInt(m["max_connections"]),
			MemoryMiB:      toInt(m["memory"]),
		}
	}
	return resources, nil
}

func writeDatabaseResources(store *clusterd.Store, resources map[string]DatabaseResources) error {
	raw := make(map[string]any, len(resources))
	for service, r := range resources {
		raw[service] = map[string]any{
			"max_connections": r.MaxConnections,
			"memory":          r.MemoryMiB,
		}
	}
	return store.Write(DatabaseResourcesKey, raw)
}

// DatabaseTfvars renders the database sizing as plan variables.
//
// With one database per service each service gets its own entry under
// mysql-config-map. Otherwise the shared database is sized for the sum of
// all services under mysql-config. Connections scale with the API units.
func DatabaseTfvars(manyMySQL bool, resources map[string]DatabaseResources, apiScale int) map[string]any {
	if apiScale < 1 {
		apiScale = 1
	}
	services := make([]string, 0, len(resources))
	for service := range resources {
		services = append(services, service)
	}
	slices.Sort(services)

	if manyMySQL {
		configMap := make(map[string]any, len(services))
		for _, service := range services {
			r := resources[service]
			configMap[service] = map[string]any{
				"profile-limit-memory":         r.MemoryMiB,
				"experimental-max-connections": r.MaxConnections * apiScale,
			}
		}
		return map[string]any{"mysql-config-map": configMap}
	}

	connections := 0
	for _, service := range services {
		connections += resources[service].MaxConnections * apiScale
	}
	if connections == 0 {
		return map[string]any{}
	}
	return map[string]any{
		"mysql-config": map[string]any{
			"profile-limit-memory":         databaseBaseMemoryMiB + connections*databaseConnectionMemKiB/1024,
			"experimental-max-connections": connections,
		},
	}
}

// databaseResourceTfvars updates the persisted sizing with f's services,
// adding them on enable and dropping them on disable, and returns the
// resulting plan variables.
func databaseResourceTfvars(store *clusterd.Store, f ControlPlaneFeature, enable bool) (map[string]any, error) {
	tfvars, err := clusterd.ReadOrEmpty(store, f.ConfigKey())
	if err != nil {
		return nil, err
	}
	resources, err := readDatabaseResources(store)
	if err != nil {
		return nil, err
	}
	for service, processes := range f.DatabaseCharmProcesses() {
		if enable {
			resources[service] = ComputeResourcesForService(processes, DatabaseMaxPoolSize)
		} else {
			delete(resources, service)
		}
	}
	if err := writeDatabaseResources(store, resources); err != nil {
		return nil, err
	}

	manyMySQL, _ := tfvars["many-mysql"].(bool)
	scale := toInt(tfvars["os-api-scale"])
	return DatabaseTfvars(manyMySQL, resources, scale), nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
