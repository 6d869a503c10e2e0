// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package embed

import (
	"context"

	"google.golang.org/genai"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

const defaultGoogleAIModel = "text-embedding-004"

// GoogleAI embeds text through the Gemini API.
type GoogleAI struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGoogleAI creates a Gemini-backed embedder. The model defaults to
// text-embedding-004.
func NewGoogleAI(apiKey, model string, dims int) (*GoogleAI, error) {
	if apiKey == "" {
		return nil, lserr.New(lserr.CodeSecretResolveFailure, "google ai api key is not configured")
	}
	if model == "" {
		model = defaultGoogleAIModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeIndexUnavailable, "creating google ai client")
	}

	return &GoogleAI{client: client, model: model, dims: dims}, nil
}

func (g *GoogleAI) Dimensions() int { return g.dims }

func (g *GoogleAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	dims := int32(g.dims)
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeIndexUnavailable, "google ai embedding request failed")
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, lserr.Errorf(lserr.CodeIndexUnavailable,
			"google ai returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
