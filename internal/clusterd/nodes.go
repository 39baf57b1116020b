package clusterd

import (
	"fmt"
	"slices"
	"sort"
)

// Node roles.
const (
	RoleControl = "control"
	RoleCompute = "compute"
	RoleStorage = "storage"
	RoleNetwork = "network"
)

// UnassignedMachine is the machine id of a node not yet joined to the
// machine model.
const UnassignedMachine = -1

// Node is a cluster member.
type Node struct {
	Name      string   `yaml:"name"`
	Roles     []string `yaml:"roles"`
	MachineID int      `yaml:"machine_id"`
}

// HasRole reports whether the node carries role.
func (n Node) HasRole(role string) bool {
	return slices.Contains(n.Roles, role)
}

// AddNode adds or replaces the node with the same name.
func (s *Store) AddNode(node Node) error {
	return s.update(func(doc *document) error {
		for i := range doc.Nodes {
			if doc.Nodes[i].Name == node.Name {
				doc.Nodes[i] = node
				return nil
			}
		}
		doc.Nodes = append(doc.Nodes, node)
		return nil
	})
}

// RemoveNode removes the named node.
func (s *Store) RemoveNode(name string) error {
	return s.update(func(doc *document) error {
		idx := slices.IndexFunc(doc.Nodes, func(n Node) bool { return n.Name == name })
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
		}
		doc.Nodes = slices.Delete(doc.Nodes, idx, idx+1)
		return nil
	})
}

// GetNode returns the named node.
func (s *Store) GetNode(name string) (Node, error) {
	doc, err := s.load()
	if err != nil {
		return Node{}, err
	}
	for _, n := range doc.Nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
}

// ListNodes returns nodes carrying role sorted by name. An empty role lists all nodes.
func (s *Store) ListNodes(role string) ([]Node, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var nodes []Node
	for _, n := range doc.Nodes {
		if role == "" || n.HasRole(role) {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// MachineIDs returns the machine ids of nodes carrying role, in node name
// order. Nodes without a machine are left out.
func (s *Store) MachineIDs(role string) ([]int, error) {
	nodes, err := s.ListNodes(role)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		if n.MachineID != UnassignedMachine {
			ids = append(ids, n.MachineID)
		}
	}
	return ids, nil
}
