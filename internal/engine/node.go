package engine

import (
	"github.com/skeinworks/skein/internal/wire"
)

// NodeView is a handle on one node.
type NodeView struct {
	eng   *Engine
	graph string
	name  string
}

// Name returns the node's name.
func (n *NodeView) Name() string { return n.name }

// Exists reports whether the node exists at the cursor.
func (n *NodeView) Exists() bool { return n.eng.HasNode(n.graph, n.name) }

// Set sets a node stat at the cursor.
func (n *NodeView) Set(key string, val wire.Value) error {
	return n.eng.SetStat(wire.NodeRef(n.graph, n.name), key, val)
}

// Get resolves a node stat at the cursor.
func (n *NodeView) Get(key string) (wire.Value, error) {
	return n.eng.GetStat(wire.NodeRef(n.graph, n.name), key)
}

// Del tombstones a node stat at the cursor.
func (n *NodeView) Del(key string) error {
	return n.eng.DelStat(wire.NodeRef(n.graph, n.name), key)
}

// Keys returns the live stat keys at the cursor, sorted.
func (n *NodeView) Keys() []string {
	return n.eng.Keys(wire.NodeRef(n.graph, n.name))
}

// Successors returns the destinations of live outgoing edges, sorted.
func (n *NodeView) Successors() []string {
	return n.eng.Successors(n.graph, n.name)
}

// Predecessors returns the origins of live incoming edges, sorted.
func (n *NodeView) Predecessors() []string {
	return n.eng.Predecessors(n.graph, n.name)
}
