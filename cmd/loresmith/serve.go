// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loresmith-dev/loresmith/internal/cache"
	"github.com/loresmith-dev/loresmith/internal/config"
	"github.com/loresmith-dev/loresmith/internal/knowledge"
	"github.com/loresmith-dev/loresmith/internal/lock"
	"github.com/loresmith-dev/loresmith/internal/search"
	"github.com/loresmith-dev/loresmith/internal/search/embed"
	"github.com/loresmith-dev/loresmith/internal/search/vector"
	"github.com/loresmith-dev/loresmith/internal/secrets"
	"github.com/loresmith-dev/loresmith/internal/server"
	"github.com/loresmith-dev/loresmith/internal/store"
	_ "github.com/loresmith-dev/loresmith/internal/store/memory"
	_ "github.com/loresmith-dev/loresmith/internal/store/sqlite"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loresmith HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return runServe(cmd, cfgFile)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, svc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

// buildService assembles the knowledge service from configuration:
// stores, embedder, vector index, search engine, locks, and cache.
func buildService(cfg *config.Config, logger *slog.Logger) (*knowledge.Service, error) {
	entries, taxonomy, graph, err := store.Open(store.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	})
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.NewResolver(secrets.NewKeyringStore()).
		APIKey(cfg.Search.Embedding.Provider, "")
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(embed.Config{
		Provider:   cfg.Search.Embedding.Provider,
		Model:      cfg.Search.Embedding.Model,
		APIKey:     apiKey,
		Dimensions: cfg.Search.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	embedder = embed.WithTimeout(embedder, cfg.Search.Embedding.Timeout)

	var vectors vector.Index
	if cfg.Storage.Backend == "sqlite" {
		vectors, err = vector.NewSQLite(
			filepath.Join(cfg.Storage.Path, "vectors.db"),
			embedder.Dimensions(),
		)
		if err != nil {
			return nil, err
		}
	} else {
		vectors = vector.NewMemory()
	}

	engine := search.NewEngine(vectors, embedder, logger)

	return knowledge.NewService(
		entries,
		taxonomy,
		graph,
		lock.NewManager(cfg.Locks.TTL, logger),
		engine,
		cache.New(cfg.Cache.TTL),
		logger,
	), nil
}
