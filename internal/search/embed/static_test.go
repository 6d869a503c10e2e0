// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestStaticDeterministic(t *testing.T) {
	s := NewStatic(128)
	ctx := context.Background()

	a, err := s.Embed(ctx, []string{"dungeon generation"})
	require.NoError(t, err)
	b, err := s.Embed(ctx, []string{"dungeon generation"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 128)
}

func TestStaticNormalised(t *testing.T) {
	s := NewStatic(64)

	vecs, err := s.Embed(context.Background(), []string{"some text with several tokens"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[0]), 1e-5)
}

func TestStaticSimilarTextsScoreHigher(t *testing.T) {
	s := NewStatic(256)
	ctx := context.Background()

	vecs, err := s.Embed(ctx, []string{
		"procedural dungeon generation",
		"dungeon generation algorithms",
		"quarterly revenue report",
	})
	require.NoError(t, err)

	near := dot(vecs[0], vecs[1])
	far := dot(vecs[0], vecs[2])
	assert.Greater(t, near, far)
}

func TestStaticEmptyText(t *testing.T) {
	s := NewStatic(32)

	vecs, err := s.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.True(t, math.Abs(dot(vecs[0], vecs[0])) < 1e-9)
}

func TestNewSelectsProvider(t *testing.T) {
	e, err := New(Config{Provider: "static", Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())

	e, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, e.Dimensions())

	_, err = New(Config{Provider: "quantum"})
	require.Error(t, err)

	_, err = New(Config{Provider: "openai"})
	require.Error(t, err) // no API key

	_, err = New(Config{Provider: "googleai"})
	require.Error(t, err) // no API key
}
