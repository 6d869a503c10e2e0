// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Static is a deterministic, offline embedder: each token hashes into a
// handful of vector slots and the result is L2-normalised. Two texts
// sharing tokens land near each other, which is enough for tests and
// for running without an embedding provider.
type Static struct {
	dims int
}

// NewStatic creates a static embedder producing vectors of dims width.
func NewStatic(dims int) *Static {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Static{dims: dims}
}

func (s *Static) Dimensions() int { return s.dims }

func (s *Static) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.embedOne(text)
	}
	return out, nil
}

func (s *Static) embedOne(text string) []float32 {
	vec := make([]float32, s.dims)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		seed := h.Sum64()
		// Spread each token over three slots with signed weights.
		for j := 0; j < 3; j++ {
			slot := int((seed >> (j * 16)) % uint64(s.dims))
			sign := float32(1)
			if (seed>>(j*16+15))&1 == 1 {
				sign = -1
			}
			vec[slot] += sign
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
