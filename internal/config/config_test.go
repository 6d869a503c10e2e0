// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7171", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, "static", cfg.Search.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Search.Embedding.Dimensions)
	assert.Equal(t, 10*time.Second, cfg.Search.Embedding.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Locks.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loresmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "0.0.0.0:9000"
storage:
  backend: memory
search:
  embedding:
    provider: openai
    model: text-embedding-3-small
    dimensions: 256
locks:
  ttl: 15m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "openai", cfg.Search.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Search.Embedding.Model)
	assert.Equal(t, 256, cfg.Search.Embedding.Dimensions)
	assert.Equal(t, 15*time.Minute, cfg.Locks.TTL)
	// Unset keys keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Listen: "not-an-address"},
		Storage: StorageConfig{Backend: "postgres"},
		Search: SearchConfig{Embedding: EmbeddingConfig{
			Provider:   "quantum",
			Dimensions: 0,
			Timeout:    -time.Second,
		}},
		Locks: LocksConfig{TTL: 0},
		Cache: CacheConfig{TTL: 0},
	}

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 6)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Listen: "127.0.0.1:99999"},
		Storage: StorageConfig{Backend: "memory"},
		Search: SearchConfig{Embedding: EmbeddingConfig{
			Provider:   "static",
			Dimensions: 64,
			Timeout:    time.Second,
		}},
		Locks: LocksConfig{TTL: time.Minute},
		Cache: CacheConfig{TTL: time.Minute},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "port")
}

func TestValidateSqliteRequiresPath(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Listen: "127.0.0.1:7171"},
		Storage: StorageConfig{Backend: "sqlite"},
		Search: SearchConfig{Embedding: EmbeddingConfig{
			Provider:   "static",
			Dimensions: 64,
			Timeout:    time.Second,
		}},
		Locks: LocksConfig{TTL: time.Minute},
		Cache: CacheConfig{TTL: time.Minute},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "storage.path")
}
