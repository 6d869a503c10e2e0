// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

func TestInsertNodeBuildsForest(t *testing.T) {
	idx := NewTaxonomyIndex()
	ctx := context.Background()

	root, err := idx.InsertNode(ctx, "Design", "")
	require.NoError(t, err)
	child, err := idx.InsertNode(ctx, "Combat", root.ID)
	require.NoError(t, err)
	grandchild, err := idx.InsertNode(ctx, "Melee", child.ID)
	require.NoError(t, err)

	path, err := idx.PathOf(ctx, grandchild.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Design", path[0].Label)
	assert.Equal(t, "Combat", path[1].Label)
	assert.Equal(t, "Melee", path[2].Label)
}

func TestInsertNodeRejectsEmptyLabelAndMissingParent(t *testing.T) {
	idx := NewTaxonomyIndex()
	ctx := context.Background()

	_, err := idx.InsertNode(ctx, "", "")
	assert.True(t, lserr.IsInvalidInput(err))

	_, err = idx.InsertNode(ctx, "Orphan", "missing")
	assert.True(t, lserr.IsNotFound(err))
}

func TestSubtreeCoversDescendants(t *testing.T) {
	idx := NewTaxonomyIndex()
	ctx := context.Background()

	root, _ := idx.InsertNode(ctx, "Design", "")
	a, _ := idx.InsertNode(ctx, "Combat", root.ID)
	b, _ := idx.InsertNode(ctx, "Economy", root.ID)
	leaf, _ := idx.InsertNode(ctx, "Melee", a.ID)

	ids, err := idx.Subtree(ctx, root.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root.ID, a.ID, b.ID, leaf.ID}, ids)

	ids, err = idx.Subtree(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}

func TestDeleteNodeRefusesParents(t *testing.T) {
	idx := NewTaxonomyIndex()
	ctx := context.Background()

	root, _ := idx.InsertNode(ctx, "Design", "")
	child, _ := idx.InsertNode(ctx, "Combat", root.ID)

	err := idx.DeleteNode(ctx, root.ID)
	require.Error(t, err)
	assert.True(t, lserr.HasCode(err, lserr.CodeNodeInUse))

	require.NoError(t, idx.DeleteNode(ctx, child.ID))
	require.NoError(t, idx.DeleteNode(ctx, root.ID))

	_, err = idx.GetNode(ctx, root.ID)
	assert.True(t, lserr.IsNotFound(err))
}

func TestListNodesParentsFirst(t *testing.T) {
	idx := NewTaxonomyIndex()
	ctx := context.Background()

	rootA, _ := idx.InsertNode(ctx, "Design", "")
	rootB, _ := idx.InsertNode(ctx, "Business", "")
	child, _ := idx.InsertNode(ctx, "Combat", rootA.ID)

	nodes, err := idx.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	pos := make(map[string]int)
	for i, n := range nodes {
		pos[n.ID] = i
	}
	assert.Less(t, pos[rootA.ID], pos[child.ID])
	assert.Contains(t, pos, rootB.ID)
}
