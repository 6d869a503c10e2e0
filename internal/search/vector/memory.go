// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Compile-time interface check.
var _ Index = (*Memory)(nil)

// Memory is an in-process Index that scans all vectors on every query.
// Fine for tests and small corpora.
type Memory struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

// NewMemory creates an empty in-memory vector index.
func NewMemory() *Memory {
	return &Memory{vecs: make(map[string][]float32)}
}

func (m *Memory) Upsert(_ context.Context, entryID string, vec []float32) error {
	cp := make([]float32, len(vec))
	copy(cp, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[entryID] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, entryIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range entryIDs {
		delete(m.vecs, id)
	}
	return nil
}

func (m *Memory) Query(_ context.Context, vec []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "k must be positive, got %d", k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.vecs))
	for id, stored := range m.vecs {
		matches = append(matches, Match{EntryID: id, Similarity: cosineSimilarity(vec, stored)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].EntryID < matches[j].EntryID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *Memory) Close() error { return nil }

// cosineSimilarity maps the cosine of the angle between a and b from
// [-1, 1] into [0, 1]. Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	sim := (cos + 1) / 2
	return math.Max(0, math.Min(1, sim))
}
