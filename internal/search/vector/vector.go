// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package vector stores entry embeddings and answers nearest-neighbor
// queries with cosine similarity normalised to [0, 1].
package vector

import "context"

// Match is one nearest-neighbor result.
type Match struct {
	// EntryID identifies the matched entry.
	EntryID string
	// Similarity is cosine similarity mapped into [0, 1]; 1 is identical.
	Similarity float64
}

// Index stores one vector per entry.
type Index interface {
	// Upsert inserts or replaces the vector for entryID.
	Upsert(ctx context.Context, entryID string, vec []float32) error
	// Delete removes the vectors for the given entry IDs.
	Delete(ctx context.Context, entryIDs []string) error
	// Query returns up to k entries nearest to vec, most similar first.
	Query(ctx context.Context, vec []float32, k int) ([]Match, error)
	// Close releases any underlying resources.
	Close() error
}
