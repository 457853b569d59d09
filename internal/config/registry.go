package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/example/calendar-bridge/internal/remote"
)

// registryFile is the on-disk shape of the node registry.
type registryFile struct {
	Nodes []registryNode `yaml:"nodes"`
}

type registryNode struct {
	ID            string `yaml:"id"`
	Address       string `yaml:"address"`
	AdminLogin    string `yaml:"admin_login"`
	AdminPassword string `yaml:"admin_password"`
}

// NodeRegistry maps node identifiers to their connection settings. The
// registry is immutable after load; node changes require a restart.
type NodeRegistry struct {
	nodes map[string]remote.Node
}

// LoadRegistry reads and validates the YAML node registry at path.
func LoadRegistry(path string) (*NodeRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse node registry %s: %w", path, err)
	}
	if len(file.Nodes) == 0 {
		return nil, fmt.Errorf("node registry %s declares no nodes", path)
	}

	nodes := make(map[string]remote.Node, len(file.Nodes))
	for i, entry := range file.Nodes {
		if entry.ID == "" {
			return nil, fmt.Errorf("node registry %s: entry %d is missing an id", path, i)
		}
		if entry.Address == "" {
			return nil, fmt.Errorf("node registry %s: node %s is missing an address", path, entry.ID)
		}
		if _, dup := nodes[entry.ID]; dup {
			return nil, fmt.Errorf("node registry %s: duplicate node id %s", path, entry.ID)
		}
		nodes[entry.ID] = remote.Node{
			ID:            entry.ID,
			Address:       entry.Address,
			AdminLogin:    entry.AdminLogin,
			AdminPassword: entry.AdminPassword,
		}
	}

	return &NodeRegistry{nodes: nodes}, nil
}

// NewNodeRegistry builds a registry from already-validated nodes, used by
// tests and embedded setups.
func NewNodeRegistry(nodes ...remote.Node) *NodeRegistry {
	m := make(map[string]remote.Node, len(nodes))
	for _, node := range nodes {
		m[node.ID] = node
	}
	return &NodeRegistry{nodes: m}
}

// Node looks a node up by identifier.
func (r *NodeRegistry) Node(id string) (remote.Node, bool) {
	node, ok := r.nodes[id]
	return node, ok
}

// Nodes returns every registered node ordered by identifier.
func (r *NodeRegistry) Nodes() []remote.Node {
	out := make([]remote.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
