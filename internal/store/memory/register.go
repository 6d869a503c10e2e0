// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"github.com/loresmith-dev/loresmith/internal/store"
)

func init() {
	store.RegisterBackend("memory", newStores)
}

func newStores(_ store.Config) (store.EntryStore, store.TaxonomyIndex, store.RelationshipGraph, error) {
	return NewEntryStore(), NewTaxonomyIndex(), NewGraph(), nil
}
