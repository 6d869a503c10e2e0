// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/loresmith-dev/loresmith/internal/search/embed"
	"github.com/loresmith-dev/loresmith/internal/search/vector"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Mode selects which signal a search uses.
type Mode string

const (
	// ModeKeyword ranks by distinct query-token overlap alone.
	ModeKeyword Mode = "keyword"
	// ModeSemantic ranks by embedding similarity alone.
	ModeSemantic Mode = "semantic"
	// ModeHybrid blends both signals with equal weight.
	ModeHybrid Mode = "hybrid"
)

// Result is one ranked search hit.
type Result struct {
	EntryID string  `json:"entry_id"`
	Score   float64 `json:"score"`
}

type staleDoc struct {
	text      string
	createdAt time.Time
}

// Engine indexes approved entry content into a keyword inverted index
// and a vector index, and answers keyword, semantic, and hybrid
// queries. The keyword half always succeeds; when the embedder fails
// the entry is kept keyword-searchable and queued as stale so a later
// RetryStale can complete the semantic half.
type Engine struct {
	keyword  *keywordIndex
	vectors  vector.Index
	embedder embed.Embedder
	logger   *slog.Logger

	staleMu sync.Mutex
	stale   map[string]staleDoc
}

// NewEngine creates a search engine over the given vector index and embedder.
func NewEngine(vectors vector.Index, embedder embed.Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		keyword:  newKeywordIndex(),
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
		stale:    make(map[string]staleDoc),
	}
}

// Close releases the vector index.
func (e *Engine) Close() error {
	return e.vectors.Close()
}

// Reindex replaces both indexes for entryID with the given text. The
// keyword index is always updated; if embedding or the vector upsert
// fails, the entry is marked stale and an unavailable error is
// returned. Callers that must not fail (approval commits) log it and
// move on.
func (e *Engine) Reindex(ctx context.Context, entryID, text string, createdAt time.Time) error {
	e.keyword.index(entryID, text, createdAt)

	if err := e.upsertVector(ctx, entryID, text); err != nil {
		e.markStale(entryID, text, createdAt)
		return lserr.Wrapf(err, lserr.CodeIndexUnavailable,
			"semantic index update failed for entry %s", entryID)
	}

	e.clearStale(entryID)
	return nil
}

// Remove drops entryID from both indexes and the stale queue.
func (e *Engine) Remove(ctx context.Context, entryID string) error {
	e.keyword.remove(entryID)
	e.clearStale(entryID)
	return e.vectors.Delete(ctx, []string{entryID})
}

// StaleEntries lists entries whose semantic index is behind their
// keyword index.
func (e *Engine) StaleEntries() []string {
	e.staleMu.Lock()
	defer e.staleMu.Unlock()

	ids := make([]string, 0, len(e.stale))
	for id := range e.stale {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RetryStale re-embeds every stale entry. Entries that fail again stay
// queued; the first failure is returned after all entries are attempted.
func (e *Engine) RetryStale(ctx context.Context) error {
	e.staleMu.Lock()
	pending := make(map[string]staleDoc, len(e.stale))
	for id, doc := range e.stale {
		pending[id] = doc
	}
	e.staleMu.Unlock()

	var firstErr error
	for id, doc := range pending {
		if err := e.upsertVector(ctx, id, doc.text); err != nil {
			if firstErr == nil {
				firstErr = lserr.Wrapf(err, lserr.CodeIndexUnavailable,
					"semantic index retry failed for entry %s", id)
			}
			continue
		}
		e.clearStale(id)
	}
	return firstErr
}

// Search runs a query in the given mode and returns up to topK results
// ordered by descending score. Ties break toward the more recently
// approved entry.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "top_k must be positive, got %d", topK)
	}
	if strings.TrimSpace(query) == "" {
		return nil, lserr.New(lserr.CodeInvalidArgument, "query must not be empty")
	}

	switch mode {
	case "", ModeHybrid:
		return e.searchHybrid(ctx, query, topK)
	case ModeKeyword:
		return e.rank(e.keyword.search(query), topK), nil
	case ModeSemantic:
		scores, err := e.searchSemantic(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		return e.rank(scores, topK), nil
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown search mode: %q", mode)
	}
}

func (e *Engine) searchHybrid(ctx context.Context, query string, topK int) ([]Result, error) {
	kwScores := e.keyword.search(query)
	semScores, err := e.searchSemantic(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	// Normalise each signal by its own maximum so neither dominates;
	// an all-zero signal divides by one and contributes nothing.
	kwMax := maxScore(kwScores)
	semMax := maxScore(semScores)

	blended := make(map[string]float64, len(kwScores)+len(semScores))
	for id, s := range kwScores {
		blended[id] += 0.5 * s / kwMax
	}
	for id, s := range semScores {
		blended[id] += 0.5 * s / semMax
	}
	return e.rank(blended, topK), nil
}

func (e *Engine) searchSemantic(ctx context.Context, query string, topK int) (map[string]float64, error) {
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeIndexUnavailable, "embedding query")
	}
	if len(vecs) != 1 {
		return nil, lserr.Errorf(lserr.CodeIndexUnavailable, "embedder returned %d vectors for one query", len(vecs))
	}

	matches, err := e.vectors.Query(ctx, vecs[0], topK)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		scores[m.EntryID] = m.Similarity
	}
	return scores, nil
}

// rank orders scored entries by score descending, then head timestamp
// descending, then ID, and truncates to topK.
func (e *Engine) rank(scores map[string]float64, topK int) []Result {
	results := make([]Result, 0, len(scores))
	for id, s := range scores {
		if s > 0 {
			results = append(results, Result{EntryID: id, Score: s})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti := e.keyword.timestampOf(results[i].EntryID)
		tj := e.keyword.timestampOf(results[j].EntryID)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return results[i].EntryID < results[j].EntryID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (e *Engine) upsertVector(ctx context.Context, entryID, text string) error {
	vecs, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return err
	}
	if len(vecs) != 1 {
		return lserr.Errorf(lserr.CodeIndexUnavailable, "embedder returned %d vectors for one input", len(vecs))
	}
	return e.vectors.Upsert(ctx, entryID, vecs[0])
}

func (e *Engine) markStale(entryID, text string, createdAt time.Time) {
	e.staleMu.Lock()
	defer e.staleMu.Unlock()
	e.stale[entryID] = staleDoc{text: text, createdAt: createdAt}
	e.logger.Warn("semantic index stale", slog.String("entry_id", entryID))
}

func (e *Engine) clearStale(entryID string) {
	e.staleMu.Lock()
	defer e.staleMu.Unlock()
	delete(e.stale, entryID)
}

func maxScore(scores map[string]float64) float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return 1
	}
	return max
}
