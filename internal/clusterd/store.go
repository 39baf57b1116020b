// Package clusterd persists deployment state in a local YAML document.
//
// The document holds opaque configuration mappings keyed by name (terraform
// variables, database sizing, feature options), the enabled state of each
// feature, the cluster nodes with their roles and machine ids, and whether
// bootstrap completed. Every operation re-reads the document and writes it back atomically,
// so a single orchestrator process can read-modify-write without caching.
//
// Key types:
//   - [Store] - the state document handle
//   - [Node] - a cluster member
//   - [ErrConfigNotFound] - returned by [Store.Read] for unknown keys
package clusterd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateFileName is the default name of the state document.
const StateFileName = "cluster.yaml"

// ErrConfigNotFound is returned when a configuration key has not been written.
var ErrConfigNotFound = errors.New("config item not found")

// ErrNodeNotFound is returned when a node name is unknown.
var ErrNodeNotFound = errors.New("node not found")

// document is the on-disk layout of the state file.
type document struct {
	Config   map[string]map[string]any `yaml:"config,omitempty"`
	Features map[string]bool           `yaml:"features,omitempty"`
	Nodes    []Node                    `yaml:"nodes,omitempty"`

	Bootstrapped bool `yaml:"bootstrapped,omitempty"`
}

// ResolvePath returns the state file location.
//
// Resolution order:
//  1. SUNBEAM_STATE_PATH environment variable
//  2. Explicit statePath parameter (if non-empty)
//  3. StateFileName under baseDir
func ResolvePath(baseDir, statePath string) string {
	if envPath := os.Getenv("SUNBEAM_STATE_PATH"); envPath != "" {
		return envPath
	}
	if statePath != "" {
		return statePath
	}
	return filepath.Join(baseDir, StateFileName)
}

// Store reads and writes the state document at path.
//
// A missing document is treated as empty. Use [NewStore] to create one.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the mapping stored under key.
//
// Returns an error wrapping [ErrConfigNotFound] if key was never written.
func (s *Store) Read(key string) (map[string]any, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := doc.Config[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, key)
	}
	if value == nil {
		value = map[string]any{}
	}
	return value, nil
}

// Write replaces the mapping stored under key.
func (s *Store) Write(key string, value map[string]any) error {
	return s.update(func(doc *document) error {
		if doc.Config == nil {
			doc.Config = make(map[string]map[string]any)
		}
		doc.Config[key] = value
		return nil
	})
}

// Delete removes key. Deleting an unknown key is not an error.
func (s *Store) Delete(key string) error {
	return s.update(func(doc *document) error {
		delete(doc.Config, key)
		return nil
	})
}

// ReadOrEmpty returns the mapping stored under key, or an empty mapping if
// the key has never been written.
func ReadOrEmpty(s interface {
	Read(key string) (map[string]any, error)
}, key string) (map[string]any, error) {
	value, err := s.Read(key)
	if errors.Is(err, ErrConfigNotFound) {
		return map[string]any{}, nil
	}
	return value, err
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster state: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to read cluster state: %w", err)
	}
	return &doc, nil
}

func (s *Store) update(mutate func(doc *document) error) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to write cluster state: %w", err)
		}
	}

	// Write to temp, then rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cluster state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cluster state: %w", err)
	}
	return nil
}
