package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skeinworks/skein/internal/wire"
)

// Scenario defines a conformance test scenario: a sequence of steps driving
// an engine from empty, and checks against the resulting history.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name for delta snapshots.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Steps run in order against a fresh engine.
	Steps []Step `yaml:"steps"`

	// Checks validate point-in-time reads after all steps ran.
	Checks []Check `yaml:"checks,omitempty"`

	// Delta optionally requests a delta snapshot for golden comparison.
	Delta *DeltaRequest `yaml:"delta,omitempty"`
}

// Step is one scenario action. Exactly one of the operation fields is set;
// the YAML key names the operation.
type Step struct {
	AddGraph string     `yaml:"add_graph,omitempty"`
	DelGraph string     `yaml:"del_graph,omitempty"`
	AddNode  *NodeStep  `yaml:"add_node,omitempty"`
	DelNode  *NodeStep  `yaml:"del_node,omitempty"`
	AddEdge  *EdgeStep  `yaml:"add_edge,omitempty"`
	DelEdge  *EdgeStep  `yaml:"del_edge,omitempty"`
	Set      *SetStep   `yaml:"set,omitempty"`
	Del      *DelStep   `yaml:"del,omitempty"`
	Advance  int        `yaml:"advance,omitempty"`
	Branch   *BranchOp  `yaml:"branch,omitempty"`
	Switch   string     `yaml:"switch,omitempty"`
	Seek     *TimeSpec  `yaml:"seek,omitempty"`
	Snapshot bool       `yaml:"snapshot,omitempty"`
}

// NodeStep names a node within a graph.
type NodeStep struct {
	Graph string `yaml:"graph"`
	Node  string `yaml:"node"`
}

// EdgeStep names a directed edge within a graph.
type EdgeStep struct {
	Graph string `yaml:"graph"`
	Orig  string `yaml:"orig"`
	Dest  string `yaml:"dest"`
}

// EntitySpec addresses a graph, node, or edge.
type EntitySpec struct {
	Domain string `yaml:"domain"`
	Graph  string `yaml:"graph"`
	Node   string `yaml:"node,omitempty"`
	Orig   string `yaml:"orig,omitempty"`
	Dest   string `yaml:"dest,omitempty"`
}

// Ref converts the address into an EntityRef.
func (s EntitySpec) Ref() (wire.EntityRef, error) {
	ref := wire.EntityRef{
		Domain: wire.Domain(s.Domain),
		Graph:  s.Graph,
		Node:   s.Node,
		Orig:   s.Orig,
		Dest:   s.Dest,
	}
	if !ref.Valid() {
		return wire.EntityRef{}, fmt.Errorf("invalid entity %s", ref)
	}
	return ref, nil
}

// SetStep writes one stat value.
type SetStep struct {
	Entity EntitySpec `yaml:"entity"`
	Key    string     `yaml:"key"`
	Value  any        `yaml:"value"`
}

// DelStep tombstones one stat.
type DelStep struct {
	Entity EntitySpec `yaml:"entity"`
	Key    string     `yaml:"key"`
}

// BranchOp forks a new branch. With no explicit position it forks at the
// cursor.
type BranchOp struct {
	Name   string    `yaml:"name"`
	Parent string    `yaml:"parent,omitempty"`
	At     *TimeSpec `yaml:"at,omitempty"`
}

// TimeSpec is a (branch, turn, tick) coordinate; branch may be omitted
// where context implies it.
type TimeSpec struct {
	Branch string `yaml:"branch,omitempty"`
	Turn   int64  `yaml:"turn"`
	Tick   int64  `yaml:"tick"`
}

// Check is one point-in-time read expectation.
type Check struct {
	Entity EntitySpec `yaml:"entity"`
	Key    string     `yaml:"key"`
	At     TimeSpec   `yaml:"at"`

	// Exactly one of the outcomes: a value, deleted, or unset.
	Want    any  `yaml:"want,omitempty"`
	Deleted bool `yaml:"deleted,omitempty"`
	Unset   bool `yaml:"unset,omitempty"`
}

// DeltaRequest asks the harness to compute a delta for golden comparison.
type DeltaRequest struct {
	Branch string   `yaml:"branch"`
	From   TimeSpec `yaml:"from"`
	To     TimeSpec `yaml:"to"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("load scenario %s: name is required", path)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("load scenario %s: at least one step is required", path)
	}
	return &sc, nil
}
