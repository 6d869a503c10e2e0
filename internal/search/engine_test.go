// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loresmith-dev/loresmith/internal/search/embed"
	"github.com/loresmith-dev/loresmith/internal/search/vector"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// failingEmbedder fails until unbroken, then delegates to a static embedder.
type failingEmbedder struct {
	inner  embed.Embedder
	broken bool
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.broken {
		return nil, lserr.New(lserr.CodeIndexUnavailable, "embedding provider is down")
	}
	return f.inner.Embed(ctx, texts)
}

func (f *failingEmbedder) Dimensions() int { return f.inner.Dimensions() }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(vector.NewMemory(), embed.NewStatic(64), nil)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Roguelike deck-building: a CASE study, v2!")
	assert.Equal(t, []string{"roguelike", "deck", "building", "case", "study", "v2"}, tokens)

	assert.Empty(t, Tokenize("a & b"))
	assert.Empty(t, Tokenize(""))
}

func TestSearchValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Search(ctx, "query", ModeHybrid, 0)
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))

	_, err = e.Search(ctx, "query", ModeHybrid, -3)
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))

	_, err = e.Search(ctx, "   ", ModeHybrid, 5)
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))

	_, err = e.Search(ctx, "query", Mode("fuzzy"), 5)
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))
}

func TestKeywordSearch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, e.Reindex(ctx, "e1", "roguelike deck building mechanics", base))
	require.NoError(t, e.Reindex(ctx, "e2", "deck building in card games", base.Add(time.Minute)))
	require.NoError(t, e.Reindex(ctx, "e3", "open world level design", base))

	results, err := e.Search(ctx, "deck building roguelike", ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// e1 matches all three tokens, e2 only two.
	assert.Equal(t, "e1", results[0].EntryID)
	assert.Equal(t, float64(3), results[0].Score)
	assert.Equal(t, "e2", results[1].EntryID)
	assert.Equal(t, float64(2), results[1].Score)
}

func TestKeywordTieBreaksOnRecency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, e.Reindex(ctx, "older", "balancing difficulty curves", base))
	require.NoError(t, e.Reindex(ctx, "newer", "balancing resource economies", base.Add(time.Hour)))

	results, err := e.Search(ctx, "balancing", ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].EntryID)
	assert.Equal(t, "older", results[1].EntryID)
}

func TestSemanticSearchFindsSimilarText(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, e.Reindex(ctx, "e1", "procedural dungeon generation algorithms", now))
	require.NoError(t, e.Reindex(ctx, "e2", "quarterly mobile revenue report", now))

	results, err := e.Search(ctx, "procedural dungeon generation", ModeSemantic, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EntryID)
}

func TestHybridBlendsSignals(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, e.Reindex(ctx, "e1", "player retention metrics for live games", now))
	require.NoError(t, e.Reindex(ctx, "e2", "narrative pacing in adventure games", now))

	results, err := e.Search(ctx, "player retention metrics", ModeHybrid, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "e1", results[0].EntryID)
	// Hybrid score is bounded by the two half-weights.
	assert.LessOrEqual(t, results[0].Score, 1.0)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Reindex(ctx, id, "crafting system design", now))
	}

	results, err := e.Search(ctx, "crafting", ModeKeyword, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRemove(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Reindex(ctx, "e1", "boss fight pacing", time.Now()))
	require.NoError(t, e.Remove(ctx, "e1"))

	results, err := e.Search(ctx, "boss", ModeKeyword, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReindexEmbedderFailureKeepsKeyword(t *testing.T) {
	fe := &failingEmbedder{inner: embed.NewStatic(64), broken: true}
	e := NewEngine(vector.NewMemory(), fe, nil)
	t.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	err := e.Reindex(ctx, "e1", "speedrun routing techniques", time.Now())
	require.Error(t, err)
	assert.Equal(t, lserr.CodeIndexUnavailable, lserr.CodeOf(err))
	assert.True(t, lserr.IsUnavailable(err))

	// Keyword search still works on the stale entry.
	results, err := e.Search(ctx, "speedrun", ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EntryID)

	assert.Equal(t, []string{"e1"}, e.StaleEntries())
}

func TestRetryStale(t *testing.T) {
	fe := &failingEmbedder{inner: embed.NewStatic(64), broken: true}
	e := NewEngine(vector.NewMemory(), fe, nil)
	t.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	require.Error(t, e.Reindex(ctx, "e1", "speedrun routing techniques", time.Now()))

	// Still broken: entry stays stale and the retry reports it.
	err := e.RetryStale(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"e1"}, e.StaleEntries())

	fe.broken = false
	require.NoError(t, e.RetryStale(ctx))
	assert.Empty(t, e.StaleEntries())

	results, err := e.Search(ctx, "speedrun routing techniques", ModeSemantic, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "e1", results[0].EntryID)
}

func TestReindexReplacesOldTokens(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, e.Reindex(ctx, "e1", "stealth gameplay", now))
	require.NoError(t, e.Reindex(ctx, "e1", "racing gameplay", now.Add(time.Minute)))

	results, err := e.Search(ctx, "stealth", ModeKeyword, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = e.Search(ctx, "racing", ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EntryID)
}
