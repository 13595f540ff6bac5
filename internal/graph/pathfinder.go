package graph

import (
	"fmt"
	"sort"

	"github.com/virtualpytest/core/internal/domain"
)

// FindShortestPath returns the ordered list of transitions from start
// to target by hop count (unweighted BFS — the graph is cyclic by
// design, so this must not be a DFS-with-visited;).
// If start == target it returns an empty, non-nil slice (
// boundary behavior). If no path exists it returns (nil, nil): "no
// path" is not itself an error.
func (e *Entry) FindShortestPath(startIDOrLabel, targetIDOrLabel string) ([]*domain.Transition, error) {
	start, ok := e.Graph.ResolveLabel(startIDOrLabel)
	if !ok {
		return nil, fmt.Errorf("start node not found: %q", startIDOrLabel)
	}
	target, ok := e.Graph.ResolveLabel(targetIDOrLabel)
	if !ok {
		return nil, fmt.Errorf("target node not found: %q", targetIDOrLabel)
	}
	if start == target {
		return []*domain.Transition{}, nil
	}

	type via struct {
		edge *ResolvedEdge
		from string
	}
	cameFrom := make(map[string]via)
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		edges := append([]*ResolvedEdge(nil), e.Graph.Out[cur]...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].EdgeID < edges[j].EdgeID })
		for _, edge := range edges {
			if visited[edge.ToNodeID] {
				continue
			}
			visited[edge.ToNodeID] = true
			cameFrom[edge.ToNodeID] = via{edge: edge, from: cur}
			if edge.ToNodeID == target {
				queue = nil
				break
			}
			queue = append(queue, edge.ToNodeID)
		}
	}

	if !visited[target] {
		return nil, nil // no path: diagnostics are the caller's job (see Diagnose)
	}

	var chain []via
	node := target
	for node != start {
		v, ok := cameFrom[node]
		if !ok {
			return nil, fmt.Errorf("internal pathfinder error: broken chain at %q", node)
		}
		chain = append(chain, v)
		node = v.from
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	transitions := make([]*domain.Transition, 0, len(chain))
	for _, v := range chain {
		transitions = append(transitions, e.toTransition(v.edge))
	}
	return transitions, nil
}

func (e *Entry) toTransition(edge *ResolvedEdge) *domain.Transition {
	fromLabel, toLabel := edge.FromNodeID, edge.ToNodeID
	if n, ok := e.ResolvedNodes[edge.FromNodeID]; ok && n.Label != "" {
		fromLabel = n.Label
	}
	if n, ok := e.ResolvedNodes[edge.ToNodeID]; ok && n.Label != "" {
		toLabel = n.Label
	}
	return &domain.Transition{
		EdgeID:          edge.EdgeID,
		FromNodeID:      edge.FromNodeID,
		ToNodeID:        edge.ToNodeID,
		FromLabel:       fromLabel,
		ToLabel:         toLabel,
		Actions:         edge.Actions,
		RetryActions:    edge.RetryActions,
		FailureActions:  edge.FailureActions,
		FinalWaitTimeMS: edge.FinalWaitTimeMS,
		Description:     fmt.Sprintf("%s -> %s", fromLabel, toLabel),
	}
}

// ResolveStart picks a pathfinding start node: the given
// start if non-empty, else a dedicated entry-typed node, else the first
// entry point, else the first vertex in deterministic order.
func (e *Entry) ResolveStart(start string) (string, bool) {
	if start != "" {
		if id, ok := e.Graph.ResolveLabel(start); ok {
			return id, true
		}
		return "", false
	}
	return e.Graph.EntryPoint(e.NodeOrder)
}

// Diagnose returns the set of node ids reachable from start following
// edge direction, and the set reachable from start when edges are
// treated as undirected, to aid debugging a no-path result.
func (e *Entry) Diagnose(start string) (reachableDirected map[string]bool, reachableUndirected map[string]bool) {
	reachableDirected = bfsReachable(e.Graph.Out, start)
	undirected := make(map[string][]*ResolvedEdge, len(e.Graph.Out))
	for from, edges := range e.Graph.Out {
		undirected[from] = append(undirected[from], edges...)
		for _, edge := range edges {
			undirected[edge.ToNodeID] = append(undirected[edge.ToNodeID], &ResolvedEdge{
				EdgeID: edge.EdgeID, FromNodeID: edge.ToNodeID, ToNodeID: from,
			})
		}
	}
	reachableUndirected = bfsReachable(undirected, start)
	return
}

func bfsReachable(adj map[string][]*ResolvedEdge, start string) map[string]bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if !visited[e.ToNodeID] {
				visited[e.ToNodeID] = true
				queue = append(queue, e.ToNodeID)
			}
		}
	}
	return visited
}

// BuildValidationSequence produces a depth-first traversal suitable for
// exercising every transition at least once: starting at each entry
// point, for each outgoing edge in sorted order, emit the forward edge,
// recurse, then emit the return edge if one exists. Uses an explicit
// visited-edges set (not visited-nodes), since the graph is cyclic.
func (e *Entry) BuildValidationSequence() []*domain.Transition {
	var entries []string
	for _, id := range e.NodeOrder {
		if n, ok := e.ResolvedNodes[id]; ok && n.NodeType == domain.NodeTypeEntry {
			entries = append(entries, id)
		}
	}
	if len(entries) == 0 && len(e.NodeOrder) > 0 {
		entries = []string{e.NodeOrder[0]}
	}

	visitedEdges := make(map[string]bool)
	var seq []*domain.Transition

	var visit func(node string)
	visit = func(node string) {
		edges := append([]*ResolvedEdge(nil), e.Graph.Out[node]...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].EdgeID < edges[j].EdgeID })
		for _, edge := range edges {
			if visitedEdges[edge.EdgeID] {
				continue
			}
			visitedEdges[edge.EdgeID] = true
			seq = append(seq, e.toTransition(edge))
			visit(edge.ToNodeID)
			if back := e.Graph.FindEdgeBack(node, edge.ToNodeID); back != nil && !visitedEdges[back.EdgeID] {
				visitedEdges[back.EdgeID] = true
				seq = append(seq, e.toTransition(back))
			}
		}
	}
	for _, start := range entries {
		visit(start)
	}
	return seq
}
