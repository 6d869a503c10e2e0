// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package embed turns entry text into fixed-width vectors for the
// semantic half of hybrid search. Providers are selected by name;
// the static provider needs no network and is the default.
package embed

import (
	"context"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// DefaultDimensions matches the width of the hosted embedding models.
const DefaultDimensions = 1536

// Embedder produces one vector per input text. Implementations must
// return vectors of exactly Dimensions() elements.
type Embedder interface {
	// Embed returns embeddings for texts, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the width of vectors this embedder produces.
	Dimensions() int
}

// Config selects and parameterises an embedding provider.
type Config struct {
	// Provider is one of "static", "openai", or "googleai".
	Provider string
	// Model overrides the provider's default model.
	Model string
	// APIKey authenticates against hosted providers.
	APIKey string
	// Dimensions is the vector width; 0 means the provider default.
	Dimensions int
}

// New builds the embedder named by cfg.Provider, defaulting to static.
func New(cfg Config) (Embedder, error) {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	switch cfg.Provider {
	case "", "static":
		return NewStatic(dims), nil
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, dims)
	case "googleai":
		return NewGoogleAI(cfg.APIKey, cfg.Model, dims)
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown embedding provider: %q", cfg.Provider)
	}
}
