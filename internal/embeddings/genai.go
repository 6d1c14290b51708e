package embeddings

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/contex/internal/interfaces"
)

// GenaiClient calls a real embedding model through google.golang.org/genai,
// the alternate backend named in SPEC_FULL.md §B, grounded on the
// teacher's internal/services/llm/gemini_service.go client-construction
// pattern.
type GenaiClient struct {
	client    *genai.Client
	modelName string
	dimension int
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewGenaiClient constructs a genai-backed embedding client.
func NewGenaiClient(ctx context.Context, apiKey, modelName string, dimension int, limiter *rate.Limiter, logger arbor.ILogger) (interfaces.EmbeddingClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GenaiClient{
		client:    client,
		modelName: modelName,
		dimension: dimension,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

func (c *GenaiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limiter: %w", err)
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := c.client.Models.EmbedContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("genai embed content failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("genai returned empty embedding")
	}

	return resp.Embeddings[0].Values, nil
}

func (c *GenaiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("batch embedding failed at index %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (c *GenaiClient) Dimension() int { return c.dimension }

func (c *GenaiClient) ModelName() string { return c.modelName }

func (c *GenaiClient) IsAvailable(ctx context.Context) bool {
	_, err := c.Embed(ctx, "ping")
	if err != nil {
		c.logger.Debug().Err(err).Msg("genai embedding provider not available")
		return false
	}
	return true
}
