// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newStores)
}

// newStores opens the three per-concern databases under cfg.Path,
// creating the directory if needed.
func newStores(cfg store.Config) (store.EntryStore, store.TaxonomyIndex, store.RelationshipGraph, error) {
	dir := cfg.Path
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "creating data directory %s", dir)
	}

	entries, err := NewEntryStore(filepath.Join(dir, "knowledge.db"))
	if err != nil {
		return nil, nil, nil, err
	}

	taxonomy, err := NewTaxonomyIndex(filepath.Join(dir, "taxonomy.db"))
	if err != nil {
		_ = entries.Close()
		return nil, nil, nil, err
	}

	graph, err := NewGraph(filepath.Join(dir, "graph.db"))
	if err != nil {
		_ = entries.Close()
		_ = taxonomy.Close()
		return nil, nil, nil, err
	}

	return entries, taxonomy, graph, nil
}
