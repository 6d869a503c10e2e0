// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Compile-time interface check.
var _ store.RelationshipGraph = (*Graph)(nil)

type edgeKey struct {
	other string
	rel   store.RelationType
}

// Graph is the in-memory relationship graph. Both adjacency maps are kept
// so neighbor queries in either direction are map lookups.
type Graph struct {
	mu  sync.RWMutex
	out map[string]map[edgeKey]*store.Edge
	in  map[string]map[edgeKey]*store.Edge
}

// NewGraph creates an empty in-memory relationship graph.
func NewGraph() *Graph {
	return &Graph{
		out: make(map[string]map[edgeKey]*store.Edge),
		in:  make(map[string]map[edgeKey]*store.Edge),
	}
}

func (g *Graph) Link(_ context.Context, source, target string, rel store.RelationType) error {
	if source == target {
		return lserr.New(lserr.CodeGraphSelfLoop,
			"an entry cannot relate to itself", lserr.FieldEntryID(source))
	}
	if !store.ValidRelationType(rel) {
		return lserr.Errorf(lserr.CodeInvalidArgument, "unknown relation type %q", rel)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.out[source][edgeKey{target, rel}]; ok {
		return nil // idempotent
	}

	edge := &store.Edge{SourceID: source, TargetID: target, Type: rel, CreatedAt: now()}
	if g.out[source] == nil {
		g.out[source] = make(map[edgeKey]*store.Edge)
	}
	if g.in[target] == nil {
		g.in[target] = make(map[edgeKey]*store.Edge)
	}
	g.out[source][edgeKey{target, rel}] = edge
	g.in[target][edgeKey{source, rel}] = edge
	return nil
}

func (g *Graph) Unlink(_ context.Context, source, target string, rel store.RelationType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.out[source], edgeKey{target, rel})
	delete(g.in[target], edgeKey{source, rel})
	return nil
}

func (g *Graph) Neighbors(_ context.Context, entryID string, rel store.RelationType, dir store.Direction) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	collect := func(m map[edgeKey]*store.Edge) {
		for k := range m {
			if rel == "" || k.rel == rel {
				seen[k.other] = true
			}
		}
	}

	switch dir {
	case store.DirectionOut:
		collect(g.out[entryID])
	case store.DirectionIn:
		collect(g.in[entryID])
	case store.DirectionBoth:
		collect(g.out[entryID])
		collect(g.in[entryID])
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown direction %q", dir)
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (g *Graph) Edges(_ context.Context, entryID string, dir store.Direction) ([]*store.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*store.Edge
	appendAll := func(m map[edgeKey]*store.Edge) {
		for _, e := range m {
			cp := *e
			out = append(out, &cp)
		}
	}

	switch dir {
	case store.DirectionOut:
		appendAll(g.out[entryID])
	case store.DirectionIn:
		appendAll(g.in[entryID])
	case store.DirectionBoth:
		appendAll(g.out[entryID])
		appendAll(g.in[entryID])
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown direction %q", dir)
	}

	slices.SortFunc(out, func(a, b *store.Edge) int {
		if a.SourceID != b.SourceID {
			return cmpStr(a.SourceID, b.SourceID)
		}
		if a.TargetID != b.TargetID {
			return cmpStr(a.TargetID, b.TargetID)
		}
		return cmpStr(string(a.Type), string(b.Type))
	})
	return out, nil
}

func cmpStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Traverse expands breadth-first across edges in both directions, visiting
// each entry once at its first-discovered depth. maxDepth bounds the cost
// of neighborhood rendering.
func (g *Graph) Traverse(_ context.Context, entryID string, maxDepth int) ([]store.Visit, error) {
	if maxDepth < 0 {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "max depth must be >= 0, got %d", maxDepth)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{entryID: true}
	visits := []store.Visit{{EntryID: entryID, Depth: 0}}
	frontier := []string{entryID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			var neighbors []string
			for k := range g.out[cur] {
				neighbors = append(neighbors, k.other)
			}
			for k := range g.in[cur] {
				neighbors = append(neighbors, k.other)
			}
			slices.Sort(neighbors)
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				visits = append(visits, store.Visit{EntryID: n, Depth: depth})
				next = append(next, n)
			}
		}
		frontier = next
	}

	return visits, nil
}

func (g *Graph) Close() error { return nil }
