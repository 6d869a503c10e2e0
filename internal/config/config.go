// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package config loads and validates the Loresmith configuration:
// defaults, then an optional YAML file, then LORESMITH_-prefixed
// environment variables, then flags bound by the CLI.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Config is the top-level Loresmith configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Search  SearchConfig  `mapstructure:"search"`
	Locks   LocksConfig   `mapstructure:"locks"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// ServerConfig controls how the HTTP server listens.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// SearchConfig controls the search engine and embedding provider.
type SearchConfig struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// EmbeddingConfig selects and parameterises the embedding provider.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LocksConfig controls the advisory lock manager.
type LocksConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// CacheConfig controls the memoization cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix LORESMITH_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:7171")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("search.embedding.provider", "static")
	v.SetDefault("search.embedding.model", "")
	v.SetDefault("search.embedding.dimensions", 1536)
	v.SetDefault("search.embedding.timeout", 10*time.Second)
	v.SetDefault("locks.ttl", 30*time.Minute)
	v.SetDefault("cache.ttl", 5*time.Minute)

	// Environment
	v.SetEnvPrefix("LORESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, lserr.Errorf(lserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, lserr.Errorf(lserr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, lserr.Errorf(lserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateDurations()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		return errs
	}
	if host == "" {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: server.listen must include a host, got %q", c.Server.Listen))
	}
	if port, convErr := strconv.Atoi(portStr); convErr != nil || port < 1 || port > 65535 {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be 1-65535, got %q", portStr))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: storage.path must not be empty for the sqlite backend"))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	validProviders := map[string]bool{"static": true, "openai": true, "googleai": true}
	if !validProviders[c.Search.Embedding.Provider] {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: search.embedding.provider must be one of [static, openai, googleai], got %q",
			c.Search.Embedding.Provider))
	}
	if c.Search.Embedding.Dimensions < 1 {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: search.embedding.dimensions must be positive, got %d", c.Search.Embedding.Dimensions))
	}

	return errs
}

func (c *Config) validateDurations() []error {
	var errs []error

	if c.Search.Embedding.Timeout <= 0 {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: search.embedding.timeout must be positive, got %s", c.Search.Embedding.Timeout))
	}
	if c.Locks.TTL <= 0 {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: locks.ttl must be positive, got %s", c.Locks.TTL))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, lserr.Errorf(lserr.CodeConfigValidateInvalidValue,
			"config: cache.ttl must be positive, got %s", c.Cache.TTL))
	}

	return errs
}
