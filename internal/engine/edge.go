package engine

import (
	"github.com/skeinworks/skein/internal/wire"
)

// EdgeView is a handle on one directed edge.
type EdgeView struct {
	eng   *Engine
	graph string
	orig  string
	dest  string
}

// Orig returns the edge's origin node name.
func (ed *EdgeView) Orig() string { return ed.orig }

// Dest returns the edge's destination node name.
func (ed *EdgeView) Dest() string { return ed.dest }

// Exists reports whether the edge exists at the cursor.
func (ed *EdgeView) Exists() bool { return ed.eng.HasEdge(ed.graph, ed.orig, ed.dest) }

// Set sets an edge stat at the cursor.
func (ed *EdgeView) Set(key string, val wire.Value) error {
	return ed.eng.SetStat(wire.EdgeRef(ed.graph, ed.orig, ed.dest), key, val)
}

// Get resolves an edge stat at the cursor.
func (ed *EdgeView) Get(key string) (wire.Value, error) {
	return ed.eng.GetStat(wire.EdgeRef(ed.graph, ed.orig, ed.dest), key)
}

// Del tombstones an edge stat at the cursor.
func (ed *EdgeView) Del(key string) error {
	return ed.eng.DelStat(wire.EdgeRef(ed.graph, ed.orig, ed.dest), key)
}

// Keys returns the live stat keys at the cursor, sorted.
func (ed *EdgeView) Keys() []string {
	return ed.eng.Keys(wire.EdgeRef(ed.graph, ed.orig, ed.dest))
}
