package engine

import (
	"github.com/skeinworks/skein/internal/wire"
)

// GraphView is a handle on one graph. It holds no state besides the name:
// every call resolves through the engine at its current cursor, so a view
// stays valid across time travel and branch switches.
type GraphView struct {
	eng  *Engine
	name string
}

// GraphView returns a handle on a graph. The graph need not exist yet, or
// still.
func (e *Engine) GraphView(name string) *GraphView {
	return &GraphView{eng: e, name: name}
}

// Name returns the graph's name.
func (g *GraphView) Name() string { return g.name }

// Exists reports whether the graph exists at the cursor.
func (g *GraphView) Exists() bool { return g.eng.HasGraph(g.name) }

// Node returns a handle on a node in this graph.
func (g *GraphView) Node(name string) *NodeView {
	return &NodeView{eng: g.eng, graph: g.name, name: name}
}

// Edge returns a handle on an edge in this graph.
func (g *GraphView) Edge(orig, dest string) *EdgeView {
	return &EdgeView{eng: g.eng, graph: g.name, orig: orig, dest: dest}
}

// Nodes returns the nodes live at the cursor, sorted.
func (g *GraphView) Nodes() []string { return g.eng.NodeNames(g.name) }

// Set sets a graph-level stat at the cursor.
func (g *GraphView) Set(key string, val wire.Value) error {
	return g.eng.SetStat(wire.GraphRef(g.name), key, val)
}

// Get resolves a graph-level stat at the cursor.
func (g *GraphView) Get(key string) (wire.Value, error) {
	return g.eng.GetStat(wire.GraphRef(g.name), key)
}

// Del tombstones a graph-level stat at the cursor.
func (g *GraphView) Del(key string) error {
	return g.eng.DelStat(wire.GraphRef(g.name), key)
}

// Keys returns the live graph-level stat keys at the cursor, sorted.
func (g *GraphView) Keys() []string {
	return g.eng.Keys(wire.GraphRef(g.name))
}
