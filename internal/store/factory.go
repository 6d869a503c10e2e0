// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package store

import (
	"sync"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Config selects and parameterises a storage backend.
type Config struct {
	// Backend names a registered backend ("memory" or "sqlite").
	Backend string
	// Path is the data directory for file-backed backends.
	Path string
}

// Factory creates the three persistent stores for a backend.
type Factory func(cfg Config) (EntryStore, TaxonomyIndex, RelationshipGraph, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open creates the stores for the configured backend, defaulting to sqlite.
func Open(cfg Config) (EntryStore, TaxonomyIndex, RelationshipGraph, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, nil, nil, lserr.Errorf(lserr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
