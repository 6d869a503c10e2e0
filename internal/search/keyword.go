// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package search implements hybrid retrieval over approved knowledge
// entries: a keyword inverted index and a semantic vector index,
// blended with equal weight.
package search

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// Tokenize lowercases text, splits on any non-alphanumeric rune, and
// drops tokens shorter than two characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// keywordIndex is an inverted index from token to the entries whose
// indexed text contains it. Scoring counts distinct query tokens
// present in the entry.
type keywordIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{}
	docs     map[string]map[string]struct{}
	indexed  map[string]time.Time
}

func newKeywordIndex() *keywordIndex {
	return &keywordIndex{
		postings: make(map[string]map[string]struct{}),
		docs:     make(map[string]map[string]struct{}),
		indexed:  make(map[string]time.Time),
	}
}

// index replaces the token set for entryID. createdAt is the head
// revision timestamp, kept for tie-breaking.
func (k *keywordIndex) index(entryID, text string, createdAt time.Time) {
	tokens := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		tokens[tok] = struct{}{}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.removeLocked(entryID)
	k.docs[entryID] = tokens
	k.indexed[entryID] = createdAt
	for tok := range tokens {
		posting, ok := k.postings[tok]
		if !ok {
			posting = make(map[string]struct{})
			k.postings[tok] = posting
		}
		posting[entryID] = struct{}{}
	}
}

func (k *keywordIndex) remove(entryID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.removeLocked(entryID)
}

func (k *keywordIndex) removeLocked(entryID string) {
	for tok := range k.docs[entryID] {
		delete(k.postings[tok], entryID)
		if len(k.postings[tok]) == 0 {
			delete(k.postings, tok)
		}
	}
	delete(k.docs, entryID)
	delete(k.indexed, entryID)
}

// search scores every entry containing at least one query token by the
// number of distinct query tokens it contains.
func (k *keywordIndex) search(query string) map[string]float64 {
	seen := make(map[string]struct{})
	scores := make(map[string]float64)

	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, tok := range Tokenize(query) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		for entryID := range k.postings[tok] {
			scores[entryID]++
		}
	}
	return scores
}

// timestampOf returns the head timestamp recorded at index time.
func (k *keywordIndex) timestampOf(entryID string) time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.indexed[entryID]
}
