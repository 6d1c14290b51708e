// Package embeddings implements the C3 embedding client contract against
// two backends: a generic HTTP/Ollama-style provider (grounded on the
// teacher's internal/services/embeddings/embedding_service.go) and an
// alternate google.golang.org/genai-backed provider, selectable via
// configuration (SPEC_FULL.md §B).
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/contex/internal/interfaces"
)

// HTTPClient calls a generic Ollama-compatible embeddings endpoint.
type HTTPClient struct {
	baseURL   string
	modelName string
	dimension int
	logger    arbor.ILogger
	client    *http.Client
	limiter   *rate.Limiter
}

// NewHTTPClient creates an HTTP-backed embedding client. limiter paces
// outbound calls so a slow or rate-limited provider cannot starve other
// projects' publishes (§5).
func NewHTTPClient(baseURL, modelName string, dimension int, timeout time.Duration, limiter *rate.Limiter, logger arbor.ILogger) interfaces.EmbeddingClient {
	return &HTTPClient{
		baseURL:   baseURL,
		modelName: modelName,
		dimension: dimension,
		logger:    logger,
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
	}
}

func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limiter: %w", err)
		}
	}

	reqBody := map[string]any{
		"model":  c.modelName,
		"prompt": text,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/embeddings", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding provider returned empty embedding")
	}

	return result.Embedding, nil
}

func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (c *HTTPClient) Dimension() int { return c.dimension }

func (c *HTTPClient) ModelName() string { return c.modelName }

func (c *HTTPClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/tags", c.baseURL), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("embedding provider not available")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
