package wire

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the full resolved state of every graph at one instant: the
// payload of a keyframe and the answer to a client snapshot request.
// Presence implies existence: a node absent from its graph's map did not
// exist at the snapshot time, and a stat absent from an entity was unset.
// Tombstoned stats are listed apart from the live values, so a snapshot
// preserves the difference between "deleted" and "never set".
type Snapshot struct {
	Graphs map[string]GraphSnapshot `json:"graphs"`
}

// Tombs is the set of stat keys tombstoned at the snapshot instant.
type Tombs map[string]bool

// GraphSnapshot is one graph's resolved state.
type GraphSnapshot struct {
	Stats Map                       `json:"stats,omitempty"`
	Nodes map[string]Map            `json:"nodes,omitempty"`
	Edges map[string]map[string]Map `json:"edges,omitempty"`

	StatTombs Tombs                       `json:"stat_tombs,omitempty"`
	NodeTombs map[string]Tombs            `json:"node_tombs,omitempty"`
	EdgeTombs map[string]map[string]Tombs `json:"edge_tombs,omitempty"`
}

// Graph returns the named graph's snapshot, adding an empty one if missing.
func (s *Snapshot) Graph(name string) GraphSnapshot {
	if s.Graphs == nil {
		s.Graphs = make(map[string]GraphSnapshot)
	}
	gs, ok := s.Graphs[name]
	if !ok {
		gs = GraphSnapshot{
			Stats:     Map{},
			Nodes:     make(map[string]Map),
			Edges:     make(map[string]map[string]Map),
			StatTombs: Tombs{},
			NodeTombs: make(map[string]Tombs),
			EdgeTombs: make(map[string]map[string]Tombs),
		}
		s.Graphs[name] = gs
	}
	return gs
}

// Lookup resolves one variable in the snapshot. For the reserved existence
// key, presence of the entity is the value. deleted reports that the key
// was tombstoned at the snapshot instant; ok is false when the snapshot
// explicitly lacks the variable, which, for a keyframe, means the variable
// was unset at the keyframe time and no older fact applies.
func (s *Snapshot) Lookup(ref EntityRef, key string) (v Value, deleted, ok bool) {
	gs, found := s.Graphs[ref.Graph]
	if !found {
		return nil, false, false
	}
	var (
		stats Map
		tombs Tombs
	)
	switch ref.Domain {
	case DomainGraph:
		if key == ExistenceKey {
			return Bool(true), false, true
		}
		stats, tombs = gs.Stats, gs.StatTombs
	case DomainNode:
		nodeStats, present := gs.Nodes[ref.Node]
		if key == ExistenceKey {
			if !present {
				return nil, false, false
			}
			return Bool(true), false, true
		}
		stats, tombs = nodeStats, gs.NodeTombs[ref.Node]
	case DomainEdge:
		edgeStats, present := gs.Edges[ref.Orig][ref.Dest]
		if key == ExistenceKey {
			if !present {
				return nil, false, false
			}
			return Bool(true), false, true
		}
		stats, tombs = edgeStats, gs.EdgeTombs[ref.Orig][ref.Dest]
	default:
		return nil, false, false
	}
	if tombs[key] {
		return nil, true, true
	}
	v, ok = stats[key]
	return v, false, ok
}

// Encode serializes the snapshot for durable storage.
func (s *Snapshot) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot deserializes a stored keyframe blob.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
