package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/store"
)

// Entry is one cache slot: a resolved graph plus the materialized node
// and edge objects it was built from, and the time it was built.
type Entry struct {
	TreeID        string
	Graph         *Graph
	ResolvedNodes map[string]*domain.Node
	ResolvedEdges map[string]*ResolvedEdge
	NodeOrder     []string // deterministic, for EntryPoint / validation sequence
	BuiltAt       time.Time
}

// Cache is the process-wide navigation graph cache: a
// mapping key -> Entry, with every built graph registered under three
// equivalent keys (tree id, tree name, userinterface name), all
// suffixed by team id so multi-tenant trees never collide.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	trees   store.TreeStore
	maxAge  time.Duration
}

// DefaultMaxAge is the sweeper threshold used when SetMaxAge is never called.
const DefaultMaxAge = 24 * time.Hour

// NewCache returns a Cache backed by trees for loads on miss.
func NewCache(trees store.TreeStore) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		trees:   trees,
		maxAge:  DefaultMaxAge,
	}
}

// SetMaxAge overrides the sweeper threshold.
func (c *Cache) SetMaxAge(d time.Duration) {
	if d > 0 {
		c.maxAge = d
	}
}

func cacheKey(idOrName, teamID string) string {
	return idOrName + "_" + teamID
}

// GetByTreeID returns the cached entry for treeID, loading and
// resolving it on a miss.
func (c *Cache) GetByTreeID(ctx context.Context, teamID, treeID string) (*Entry, error) {
	return c.get(ctx, teamID, treeID, func() (*domain.Tree, error) {
		return c.trees.GetTree(ctx, teamID, treeID)
	})
}

// GetByUserinterfaceName returns the cached entry for a userinterface
// name, loading and resolving it on a miss.
func (c *Cache) GetByUserinterfaceName(ctx context.Context, teamID, uiName string) (*Entry, error) {
	return c.get(ctx, teamID, uiName, func() (*domain.Tree, error) {
		return c.trees.GetTreeByName(ctx, teamID, uiName)
	})
}

func (c *Cache) get(ctx context.Context, teamID, key string, load func() (*domain.Tree, error)) (*Entry, error) {
	c.mu.Lock()
	c.sweepLocked()
	if e, ok := c.entries[cacheKey(key, teamID)]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	tree, err := load()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	return c.rebuild(ctx, tree)
}

// Invalidate drops all three keys for a tree; it does not rebuild.
// Callers save the tree first, then call Invalidate, then typically
// Rebuild eagerly. A read of a dropped key before that Rebuild loads
// the tree from the store and rebuilds it.
func (c *Cache) Invalidate(tree *domain.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(tree.TreeID, tree.TeamID))
	delete(c.entries, cacheKey(tree.Name, tree.TeamID))
	delete(c.entries, cacheKey(tree.UserinterfaceName, tree.TeamID))
}

// Rebuild forces a fresh resolve-and-build for tree, atomically
// registering the result under all three keys.
func (c *Cache) Rebuild(ctx context.Context, tree *domain.Tree) (*Entry, error) {
	return c.rebuild(ctx, tree)
}

func (c *Cache) rebuild(ctx context.Context, tree *domain.Tree) (*Entry, error) {
	entry, err := resolveTree(ctx, c.trees, tree)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(tree.TreeID, tree.TeamID)] = entry
	if tree.Name != "" {
		c.entries[cacheKey(tree.Name, tree.TeamID)] = entry
	}
	if tree.UserinterfaceName != "" {
		c.entries[cacheKey(tree.UserinterfaceName, tree.TeamID)] = entry
	}
	return entry, nil
}

// sweepLocked removes entries older than maxAge. Called on demand from
// get(), never from a dedicated timer, so a library embedding this
// package never gains a background goroutine it didn't ask for.
func (c *Cache) sweepLocked() {
	if c.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-c.maxAge)
	for k, e := range c.entries {
		if e.BuiltAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

// resolveTree performs the bulk-lookup-then-substitute resolution of a
// tree's action and verification ids, and builds the directed multigraph.
func resolveTree(ctx context.Context, trees store.TreeStore, tree *domain.Tree) (*Entry, error) {
	actionIDSet := make(map[string]struct{})
	verificationIDSet := make(map[string]struct{})
	for _, e := range tree.Metadata.Edges {
		for _, id := range e.ActionIDs {
			actionIDSet[id] = struct{}{}
		}
		for _, id := range e.RetryActionIDs {
			actionIDSet[id] = struct{}{}
		}
		for _, id := range e.FailureActionIDs {
			actionIDSet[id] = struct{}{}
		}
	}
	for _, n := range tree.Metadata.Nodes {
		for _, id := range n.VerificationIDs {
			verificationIDSet[id] = struct{}{}
		}
	}

	actionIDs := make([]string, 0, len(actionIDSet))
	for id := range actionIDSet {
		actionIDs = append(actionIDs, id)
	}
	verificationIDs := make([]string, 0, len(verificationIDSet))
	for id := range verificationIDSet {
		verificationIDs = append(verificationIDs, id)
	}

	actionMap, err := trees.GetActions(ctx, tree.TeamID, actionIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk-load actions: %w", err)
	}
	verificationMap, err := trees.GetVerifications(ctx, tree.TeamID, verificationIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk-load verifications: %w", err)
	}

	// For every resolved action, default params.wait_time if unset.
	// Actions are immutable shared records, so we copy before mutating.
	resolveAction := func(id string) *domain.Action {
		a, ok := actionMap[id]
		if !ok {
			return nil // missing ids dropped silently
		}
		cp := *a
		params := make(map[string]any, len(a.Params)+1)
		for k, v := range a.Params {
			params[k] = v
		}
		cp.Params = params
		if cp.WaitTimeMS() == 0 {
			cp.SetWaitTimeMS(domain.DefaultActionWaitTimeMS)
		}
		return &cp
	}
	resolveActions := func(ids []string) []*domain.Action {
		out := make([]*domain.Action, 0, len(ids))
		for _, id := range ids {
			if a := resolveAction(id); a != nil {
				out = append(out, a)
			}
		}
		return out
	}

	g := NewGraph()
	resolvedNodes := make(map[string]*domain.Node, len(tree.Metadata.Nodes))
	nodeOrder := make([]string, 0, len(tree.Metadata.Nodes))

	for _, n := range tree.Metadata.Nodes {
		rn := *n
		rn.Verifications = make([]*domain.Verification, 0, len(n.VerificationIDs))
		for _, id := range n.VerificationIDs {
			v, ok := verificationMap[id]
			if !ok {
				continue // missing id dropped silently
			}
			if !v.HasMinimalParams() {
				continue // filtered out silently
			}
			rn.Verifications = append(rn.Verifications, v)
		}
		resolvedNodes[n.NodeID] = &rn
		g.AddNode(&rn)
		nodeOrder = append(nodeOrder, n.NodeID)
	}
	sort.Strings(nodeOrder)

	resolvedEdges := make(map[string]*ResolvedEdge, len(tree.Metadata.Edges))
	for _, e := range tree.Metadata.Edges {
		if _, ok := resolvedNodes[e.FromNode]; !ok {
			continue // dangling node reference; drop rather than crash resolution
		}
		if _, ok := resolvedNodes[e.ToNode]; !ok {
			continue
		}
		finalWait := e.FinalWaitTimeMS
		if finalWait == 0 {
			finalWait = domain.DefaultFinalWaitTimeMS
		}
		re := &ResolvedEdge{
			EdgeID:          e.EdgeID,
			FromNodeID:      e.FromNode,
			ToNodeID:        e.ToNode,
			Actions:         resolveActions(e.ActionIDs),
			RetryActions:    resolveActions(e.RetryActionIDs),
			FailureActions:  resolveActions(e.FailureActionIDs),
			FinalWaitTimeMS: finalWait,
		}
		resolvedEdges[e.EdgeID] = re
		g.AddEdge(re)
	}

	return &Entry{
		TreeID:        tree.TreeID,
		Graph:         g,
		ResolvedNodes: resolvedNodes,
		ResolvedEdges: resolvedEdges,
		NodeOrder:     nodeOrder,
		BuiltAt:       time.Now(),
	}, nil
}
