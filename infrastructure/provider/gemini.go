package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// geminiTaskType asks for vectors tuned for comparing texts with each other.
const geminiTaskType = "SEMANTIC_SIMILARITY"

// GeminiConfig holds configuration for the Gemini embedder.
type GeminiConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// GeminiEmbedder generates embeddings with the Gemini API.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates a Gemini client. No request is made until Embed.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, dimension: cfg.Dimension}, nil
}

// Name returns "gemini:<model>".
func (g *GeminiEmbedder) Name() string { return "gemini:" + g.model }

// Embed generates one embedding.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: geminiTaskType}
	if g.dimension > 0 {
		d := int32(g.dimension)
		cfg.OutputDimensionality = &d
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, NewProviderError("embedding", apiErr.Code, apiErr.Message, err)
		}
		return nil, NewProviderError("embedding", 0, err.Error(), err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, NewProviderError("embedding", 0, ErrEmptyResponse.Error(), ErrEmptyResponse)
	}
	return result.Embeddings[0].Values, nil
}

var _ Embedder = (*GeminiEmbedder)(nil)
