package wire

// Delta is the wire form of "what changed between two time coordinates in
// one branch". It is always computed from facts, never by diffing two
// keyframes, so it contains exactly the variables that changed.
//
// This plus the keyframe snapshot request is the entire contract exposed to
// remote clients; the internal cache representation never crosses the wire.
type Delta struct {
	Branch   string                 `json:"branch"`
	FromTurn int64                  `json:"from_turn"`
	FromTick int64                  `json:"from_tick"`
	ToTurn   int64                  `json:"to_turn"`
	ToTick   int64                  `json:"to_tick"`
	Graphs   map[string]*GraphDelta `json:"graphs,omitempty"`
}

// GraphDelta collects every change within one graph.
type GraphDelta struct {
	// Exists is non-nil when the graph itself was created or deleted
	// inside the window.
	Exists *bool                 `json:"exists,omitempty"`
	Stats  map[string]StatChange `json:"stats,omitempty"`
	Nodes  map[string]*NodeDelta `json:"nodes,omitempty"`
	// Edges is keyed by origin, then destination.
	Edges map[string]map[string]*EdgeDelta `json:"edges,omitempty"`
}

// NodeDelta is the change set of one node.
type NodeDelta struct {
	Exists *bool                 `json:"exists,omitempty"`
	Stats  map[string]StatChange `json:"stats,omitempty"`
}

// EdgeDelta is the change set of one edge.
type EdgeDelta struct {
	Exists *bool                 `json:"exists,omitempty"`
	Stats  map[string]StatChange `json:"stats,omitempty"`
}

// StatChange records one stat's old and new values. A nil Old means the
// stat was unset at the start of the window; Deleted true means the stat
// was tombstoned inside the window (New is then nil).
type StatChange struct {
	Old     Value `json:"old,omitempty"`
	New     Value `json:"new,omitempty"`
	Deleted bool  `json:"deleted,omitempty"`
}

// Empty reports whether the delta carries no changes at all.
func (d *Delta) Empty() bool {
	return len(d.Graphs) == 0
}

// Graph returns the GraphDelta for a graph, creating it on first use.
func (d *Delta) Graph(name string) *GraphDelta {
	if d.Graphs == nil {
		d.Graphs = make(map[string]*GraphDelta)
	}
	gd, ok := d.Graphs[name]
	if !ok {
		gd = &GraphDelta{}
		d.Graphs[name] = gd
	}
	return gd
}

// Node returns the NodeDelta for a node, creating it on first use.
func (gd *GraphDelta) Node(name string) *NodeDelta {
	if gd.Nodes == nil {
		gd.Nodes = make(map[string]*NodeDelta)
	}
	nd, ok := gd.Nodes[name]
	if !ok {
		nd = &NodeDelta{}
		gd.Nodes[name] = nd
	}
	return nd
}

// Edge returns the EdgeDelta for an edge, creating it on first use.
func (gd *GraphDelta) Edge(orig, dest string) *EdgeDelta {
	if gd.Edges == nil {
		gd.Edges = make(map[string]map[string]*EdgeDelta)
	}
	dests, ok := gd.Edges[orig]
	if !ok {
		dests = make(map[string]*EdgeDelta)
		gd.Edges[orig] = dests
	}
	ed, ok := dests[dest]
	if !ok {
		ed = &EdgeDelta{}
		dests[dest] = ed
	}
	return ed
}

// ToCanonical converts the delta into plain maps suitable for
// MarshalCanonical, for golden-file comparison and hashing. Nil values are
// expressed by omission (canonical JSON forbids null).
func (d *Delta) ToCanonical() map[string]any {
	out := map[string]any{
		"branch":    d.Branch,
		"from_turn": d.FromTurn,
		"from_tick": d.FromTick,
		"to_turn":   d.ToTurn,
		"to_tick":   d.ToTick,
	}
	if len(d.Graphs) == 0 {
		return out
	}
	graphs := make(map[string]any, len(d.Graphs))
	for name, gd := range d.Graphs {
		graphs[name] = gd.toCanonical()
	}
	out["graphs"] = graphs
	return out
}

func (gd *GraphDelta) toCanonical() map[string]any {
	out := map[string]any{}
	if gd.Exists != nil {
		out["exists"] = *gd.Exists
	}
	if len(gd.Stats) > 0 {
		out["stats"] = statsToCanonical(gd.Stats)
	}
	if len(gd.Nodes) > 0 {
		nodes := make(map[string]any, len(gd.Nodes))
		for name, nd := range gd.Nodes {
			node := map[string]any{}
			if nd.Exists != nil {
				node["exists"] = *nd.Exists
			}
			if len(nd.Stats) > 0 {
				node["stats"] = statsToCanonical(nd.Stats)
			}
			nodes[name] = node
		}
		out["nodes"] = nodes
	}
	if len(gd.Edges) > 0 {
		edges := make(map[string]any, len(gd.Edges))
		for orig, dests := range gd.Edges {
			origOut := make(map[string]any, len(dests))
			for dest, ed := range dests {
				edge := map[string]any{}
				if ed.Exists != nil {
					edge["exists"] = *ed.Exists
				}
				if len(ed.Stats) > 0 {
					edge["stats"] = statsToCanonical(ed.Stats)
				}
				origOut[dest] = edge
			}
			edges[orig] = origOut
		}
		out["edges"] = edges
	}
	return out
}

func statsToCanonical(stats map[string]StatChange) map[string]any {
	out := make(map[string]any, len(stats))
	for key, ch := range stats {
		entry := map[string]any{}
		if ch.Old != nil {
			entry["old"] = ch.Old
		}
		if ch.New != nil {
			entry["new"] = ch.New
		}
		if ch.Deleted {
			entry["deleted"] = true
		}
		out[key] = entry
	}
	return out
}
