// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package embed

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAI embeds text through the OpenAI embeddings endpoint.
type OpenAI struct {
	client openaisdk.Client
	model  string
	dims   int
}

// NewOpenAI creates an OpenAI-backed embedder. The model defaults to
// text-embedding-3-small.
func NewOpenAI(apiKey, model string, dims int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, lserr.New(lserr.CodeSecretResolveFailure, "openai api key is not configured")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}

	client := openaisdk.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{client: client, model: model, dims: dims}, nil
}

func (o *OpenAI) Dimensions() int { return o.dims }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model:      openaisdk.EmbeddingModel(o.model),
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions: openaisdk.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeIndexUnavailable, "openai embedding request failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, lserr.Errorf(lserr.CodeIndexUnavailable,
			"openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
