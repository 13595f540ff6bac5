// Package graph builds and caches the in-memory directed multigraph a
// navigation tree resolves to, and answers shortest-path and
// validation-sequence queries over it.
package graph

import "github.com/virtualpytest/core/internal/domain"

// ResolvedEdge is a graph edge whose id lists have been substituted for
// the concrete Action objects they reference.
type ResolvedEdge struct {
	EdgeID          string
	FromNodeID      string
	ToNodeID        string
	Actions         []*domain.Action
	RetryActions    []*domain.Action
	FailureActions  []*domain.Action
	FinalWaitTimeMS int
}

// Graph is a directed multigraph over node ids. Multiple ResolvedEdge
// values may share the same (from, to) pair.
type Graph struct {
	Nodes map[string]*domain.Node
	// Out maps a node id to every edge leaving it, in the order they
	// appeared in the tree's edge list ( "deterministic
	// (sorted) order" relies on edges being walked in a stable order).
	Out map[string][]*ResolvedEdge
	// In is the reverse index: every edge arriving at a node id.
	In map[string][]*ResolvedEdge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*domain.Node),
		Out:   make(map[string][]*ResolvedEdge),
		In:    make(map[string][]*ResolvedEdge),
	}
}

// AddNode registers a vertex.
func (g *Graph) AddNode(n *domain.Node) {
	g.Nodes[n.NodeID] = n
}

// AddEdge registers a directed edge. Both endpoints must already exist
// as nodes ( invariant); callers are expected to have validated
// this during resolution.
func (g *Graph) AddEdge(e *ResolvedEdge) {
	g.Out[e.FromNodeID] = append(g.Out[e.FromNodeID], e)
	g.In[e.ToNodeID] = append(g.In[e.ToNodeID], e)
}

// FindEdgeBack reports whether a direct edge to->from exists, used by
// the validation-sequence builder to decide whether to emit a return
// transition.
func (g *Graph) FindEdgeBack(from, to string) *ResolvedEdge {
	for _, e := range g.Out[to] {
		if e.ToNodeID == from {
			return e
		}
	}
	return nil
}

// ResolveLabel finds a node id by exact id, exact label, then
// case-insensitive label, in that order.
func (g *Graph) ResolveLabel(idOrLabel string) (string, bool) {
	if _, ok := g.Nodes[idOrLabel]; ok {
		return idOrLabel, true
	}
	var ciMatch string
	found := false
	lowered := toLower(idOrLabel)
	for id, n := range g.Nodes {
		if n.Label == idOrLabel {
			return id, true
		}
		if !found && toLower(n.Label) == lowered {
			ciMatch = id
			found = true
		}
	}
	if found {
		return ciMatch, true
	}
	return "", false
}

// EntryPoint returns the node used as a default pathfinding start:
// a dedicated entry-typed node if one exists, otherwise the first
// vertex in nodeOrder. nodeOrder supplies a deterministic iteration
// order over g.Nodes since Go map iteration is randomized.
func (g *Graph) EntryPoint(nodeOrder []string) (string, bool) {
	for _, id := range nodeOrder {
		if n, ok := g.Nodes[id]; ok && n.NodeType == domain.NodeTypeEntry {
			return id, true
		}
	}
	if len(nodeOrder) > 0 {
		return nodeOrder[0], true
	}
	return "", false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
