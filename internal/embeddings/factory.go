package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/interfaces"
)

// NewClient builds the appropriate EmbeddingClient implementation based on
// configuration, mirroring the teacher's llm.NewLLMService provider-select
// pattern.
func NewClient(ctx context.Context, cfg *common.EmbeddingConfig, logger arbor.ILogger) (interfaces.EmbeddingClient, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding timeout %q: %w", cfg.Timeout, err)
	}

	// One request per second, bursting to three: enough headroom for a
	// register's N-need embedding fan-out without saturating a local
	// provider.
	limiter := rate.NewLimiter(rate.Limit(1), 3)

	switch cfg.Provider {
	case "", "http":
		return NewHTTPClient(cfg.HTTP.BaseURL, cfg.HTTP.Model, cfg.Dimension, timeout, limiter, logger), nil
	case "genai":
		return NewGenaiClient(ctx, cfg.Genai.APIKey, cfg.Genai.Model, cfg.Dimension, limiter, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: must be 'http' or 'genai'", cfg.Provider)
	}
}
