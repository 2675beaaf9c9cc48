package wire

import "fmt"

// Domain distinguishes the three kinds of entity a fact can attach to.
type Domain string

const (
	DomainGraph Domain = "graph"
	DomainNode  Domain = "node"
	DomainEdge  Domain = "edge"
)

// EntityRef identifies a graph, node, or edge. Which fields are meaningful
// depends on Domain:
//
//	graph: Graph
//	node:  Graph, Node
//	edge:  Graph, Orig, Dest
//
// Refs are plain comparable values; they are the map keys of the
// point-in-time caches and the entity field of every fact.
type EntityRef struct {
	Domain Domain `json:"domain"`
	Graph  string `json:"graph"`
	Node   string `json:"node,omitempty"`
	Orig   string `json:"orig,omitempty"`
	Dest   string `json:"dest,omitempty"`
}

// GraphRef returns a reference to a graph entity.
func GraphRef(graph string) EntityRef {
	return EntityRef{Domain: DomainGraph, Graph: graph}
}

// NodeRef returns a reference to a node entity.
func NodeRef(graph, node string) EntityRef {
	return EntityRef{Domain: DomainNode, Graph: graph, Node: node}
}

// EdgeRef returns a reference to an edge entity.
func EdgeRef(graph, orig, dest string) EntityRef {
	return EntityRef{Domain: DomainEdge, Graph: graph, Orig: orig, Dest: dest}
}

// String renders the ref for logs and error messages.
func (r EntityRef) String() string {
	switch r.Domain {
	case DomainGraph:
		return fmt.Sprintf("graph:%s", r.Graph)
	case DomainNode:
		return fmt.Sprintf("node:%s/%s", r.Graph, r.Node)
	case DomainEdge:
		return fmt.Sprintf("edge:%s/%s->%s", r.Graph, r.Orig, r.Dest)
	default:
		return fmt.Sprintf("entity:%s/%s/%s/%s/%s", r.Domain, r.Graph, r.Node, r.Orig, r.Dest)
	}
}

// Valid reports whether the ref has the fields its domain requires.
func (r EntityRef) Valid() bool {
	switch r.Domain {
	case DomainGraph:
		return r.Graph != "" && r.Node == "" && r.Orig == "" && r.Dest == ""
	case DomainNode:
		return r.Graph != "" && r.Node != "" && r.Orig == "" && r.Dest == ""
	case DomainEdge:
		return r.Graph != "" && r.Node == "" && r.Orig != "" && r.Dest != ""
	default:
		return false
	}
}

// canonicalMap renders the ref for canonical-JSON hashing. Empty fields are
// omitted so node and edge refs never collide on field padding.
func (r EntityRef) canonicalMap() Map {
	m := Map{
		"domain": Str(string(r.Domain)),
		"graph":  Str(r.Graph),
	}
	if r.Node != "" {
		m["node"] = Str(r.Node)
	}
	if r.Orig != "" {
		m["orig"] = Str(r.Orig)
	}
	if r.Dest != "" {
		m["dest"] = Str(r.Dest)
	}
	return m
}
