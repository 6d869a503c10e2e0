// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package embed

import (
	"context"
	"time"
)

// WithTimeout bounds every Embed call on the wrapped embedder. A
// non-positive timeout returns the embedder unchanged.
func WithTimeout(e Embedder, timeout time.Duration) Embedder {
	if timeout <= 0 {
		return e
	}
	return &timeoutEmbedder{inner: e, timeout: timeout}
}

type timeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

func (t *timeoutEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Embed(ctx, texts)
}

func (t *timeoutEmbedder) Dimensions() int { return t.inner.Dimensions() }
