// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

const seedYAML = `
taxonomy:
  - label: Game Design
    children:
      - label: Mechanics
        children:
          - label: Combat
      - label: Narrative
  - label: Market Research
`

func TestSeedTaxonomy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.SeedTaxonomy(ctx, strings.NewReader(seedYAML))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	nodes, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	byLabel := map[string]string{}
	for _, node := range nodes {
		byLabel[node.Label] = node.ID
	}

	path, err := svc.PathOf(ctx, byLabel["Combat"])
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Game Design", path[0].Label)
	assert.Equal(t, "Mechanics", path[1].Label)
	assert.Equal(t, "Combat", path[2].Label)

	// Market Research is its own root.
	path, err = svc.PathOf(ctx, byLabel["Market Research"])
	require.NoError(t, err)
	assert.Len(t, path, 1)
}

func TestSeedTaxonomyRejectsEmpty(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SeedTaxonomy(context.Background(), strings.NewReader("taxonomy: []"))
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))
}

func TestSeedTaxonomyRejectsBadYAML(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SeedTaxonomy(context.Background(), strings.NewReader("{not yaml"))
	require.Error(t, err)
}

func TestSeedTaxonomyRejectsUnlabeledNode(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SeedTaxonomy(context.Background(), strings.NewReader("taxonomy:\n  - children: []\n"))
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))
}
