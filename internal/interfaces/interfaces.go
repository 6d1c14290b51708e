// Package interfaces defines the collaborator contracts between Contex's
// core components (C1-C7), grounded on the teacher's
// internal/interfaces/embedding_service.go and event_service.go style:
// small, single-purpose interfaces that services depend on rather than
// concrete types.
package interfaces

import (
	"context"

	"github.com/ternarybob/contex/internal/models"
)

// FormatParser is the C1 capability set: every parser supplies a name,
// a priority (lower runs first), and the two-phase can_parse/parse
// contract.
type FormatParser interface {
	FormatName() models.Format
	Priority() int
	CanParse(raw any, hint string) bool
	Parse(raw any) ParseResult
}

// ParseResult is the outcome of a single parser's Parse call.
type ParseResult struct {
	Success      bool
	Normalized   map[string]any
	IsStructured bool
	Metadata     map[string]any
	Error        error
}

// EmbeddingClient maps text to a fixed-dimension vector (C3). External and
// opaque per spec; the core only requires determinism per model version
// and that vectors be L2-normalizable.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
	IsAvailable(ctx context.Context) bool
}

// VectorIndex is the per-project store of (data_key -> vector, payload,
// sequence) with top-k cosine search (C4).
type VectorIndex interface {
	Upsert(projectID, dataKey string, vector []float32, payload *models.DataItem, seq int64)
	Search(projectID string, query []float32, k int) []SearchHit
	All(projectID string) []*models.DataItem
	Get(projectID, dataKey string) (*models.DataItem, bool)
	Reset(projectID string)
}

// SearchHit is one result of a VectorIndex.Search call.
type SearchHit struct {
	DataKey    string
	Similarity float32
	Item       *models.DataItem
}

// EventLog is the per-project atomic sequence counter and bounded ring
// buffer (C6).
type EventLog interface {
	AssignSeq(projectID string) int64
	Append(projectID string, event models.Event)
	Since(projectID string, cursor int64) (events []models.Event, truncated bool)
	CurrentSeq(projectID string) int64
	Reset(projectID string)
}

// Sink is a delivery fabric backend: broker channel or webhook (C7).
type Sink interface {
	Deliver(ctx context.Context, agent *models.Agent, event models.Event) error
}
