// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

func now() time.Time { return time.Now().UTC() }

// Compile-time interface check.
var _ store.TaxonomyIndex = (*TaxonomyIndex)(nil)

// TaxonomyIndex is the in-memory category forest.
type TaxonomyIndex struct {
	mu       sync.RWMutex
	nodes    map[string]*store.TaxonomyNode
	children map[string][]string // parent ID -> ordered child IDs
	roots    []string
}

// NewTaxonomyIndex creates an empty in-memory taxonomy index.
func NewTaxonomyIndex() *TaxonomyIndex {
	return &TaxonomyIndex{
		nodes:    make(map[string]*store.TaxonomyNode),
		children: make(map[string][]string),
	}
}

func (t *TaxonomyIndex) InsertNode(_ context.Context, label, parentID string) (*store.TaxonomyNode, error) {
	if label == "" {
		return nil, lserr.New(lserr.CodeInvalidArgument, "taxonomy label must not be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if parentID != "" {
		if _, ok := t.nodes[parentID]; !ok {
			return nil, lserr.New(lserr.CodeNodeNotFound,
				"parent taxonomy node not found", lserr.FieldNodeID(parentID))
		}
		// The parent chain must reach a root without revisiting a node.
		// Impossible with generated IDs unless the map was corrupted, but
		// the forest invariant is checked on every insert regardless.
		if err := t.walkToRoot(parentID); err != nil {
			return nil, err
		}
	}

	node := &store.TaxonomyNode{
		ID:        uuid.NewString(),
		Label:     label,
		ParentID:  parentID,
		CreatedAt: now(),
	}
	t.nodes[node.ID] = node
	if parentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		t.children[parentID] = append(t.children[parentID], node.ID)
	}

	cp := *node
	return &cp, nil
}

// walkToRoot follows parent pointers from nodeID and fails if the chain
// revisits a node before terminating at a root. Callers hold t.mu.
func (t *TaxonomyIndex) walkToRoot(nodeID string) error {
	seen := make(map[string]bool)
	for cur := nodeID; cur != ""; {
		if seen[cur] {
			return lserr.New(lserr.CodeTaxonomyCycle,
				"taxonomy parent chain revisits a node", lserr.FieldNodeID(nodeID))
		}
		seen[cur] = true
		node, ok := t.nodes[cur]
		if !ok {
			return lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(cur))
		}
		cur = node.ParentID
	}
	return nil
}

func (t *TaxonomyIndex) GetNode(_ context.Context, nodeID string) (*store.TaxonomyNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}

	cp := *node
	return &cp, nil
}

func (t *TaxonomyIndex) PathOf(_ context.Context, nodeID string) ([]*store.TaxonomyNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[nodeID]; !ok {
		return nil, lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}
	if err := t.walkToRoot(nodeID); err != nil {
		return nil, err
	}

	var path []*store.TaxonomyNode
	for cur := nodeID; cur != ""; {
		node := t.nodes[cur]
		cp := *node
		path = append(path, &cp)
		cur = node.ParentID
	}
	slices.Reverse(path)
	return path, nil
}

func (t *TaxonomyIndex) Subtree(_ context.Context, nodeID string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[nodeID]; !ok {
		return nil, lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}

	// Breadth-first walk; terminates because inserts keep the forest
	// acyclic.
	var out []string
	queue := []string{nodeID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out, nil
}

func (t *TaxonomyIndex) DeleteNode(_ context.Context, nodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[nodeID]
	if !ok {
		return lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}
	if len(t.children[nodeID]) > 0 {
		return lserr.New(lserr.CodeNodeInUse,
			"taxonomy node still has child nodes", lserr.FieldNodeID(nodeID))
	}

	delete(t.nodes, nodeID)
	delete(t.children, nodeID)
	if node.ParentID == "" {
		t.roots = slices.DeleteFunc(t.roots, func(id string) bool { return id == nodeID })
	} else {
		t.children[node.ParentID] = slices.DeleteFunc(t.children[node.ParentID], func(id string) bool { return id == nodeID })
	}
	return nil
}

func (t *TaxonomyIndex) ListNodes(_ context.Context) ([]*store.TaxonomyNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Breadth-first from the roots so parents always precede children.
	var out []*store.TaxonomyNode
	queue := slices.Clone(t.roots)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cp := *t.nodes[cur]
		out = append(out, &cp)
		queue = append(queue, t.children[cur]...)
	}
	return out, nil
}

func (t *TaxonomyIndex) Close() error { return nil }
