// Package vectorindex implements C4: a per-project store of
// (data_key -> vector, payload, sequence) with brute-force cosine top-k
// search, exact for project sizes up to 10^3 (§4.4).
package vectorindex

import (
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

type projectIndex struct {
	mu    sync.RWMutex
	items map[string]*models.DataItem // data_key -> item (includes vector)
}

// Index is the process-wide map of project -> per-project vector store.
// Lifecycle matches the process: no persistence, per DESIGN NOTES (§9).
type Index struct {
	mu       sync.Mutex
	projects map[string]*projectIndex
}

func New() *Index {
	return &Index{projects: make(map[string]*projectIndex)}
}

func (idx *Index) projectOf(projectID string) *projectIndex {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	p, ok := idx.projects[projectID]
	if !ok {
		p = &projectIndex{items: make(map[string]*models.DataItem)}
		idx.projects[projectID] = p
	}
	return p
}

// Upsert replaces any prior entry for data_key within the project.
func (idx *Index) Upsert(projectID, dataKey string, vector []float32, payload *models.DataItem, seq int64) {
	p := idx.projectOf(projectID)
	p.mu.Lock()
	defer p.mu.Unlock()

	item := payload
	item.EmbeddingVector = vector
	item.Sequence = seq
	p.items[dataKey] = item
}

// Search returns the top-k data_keys by descending cosine similarity,
// ties broken lexicographically by data_key.
func (idx *Index) Search(projectID string, query []float32, k int) []interfaces.SearchHit {
	p := idx.projectOf(projectID)
	p.mu.RLock()
	defer p.mu.RUnlock()

	hits := make([]interfaces.SearchHit, 0, len(p.items))
	for key, item := range p.items {
		sim := CosineSimilarity(query, item.EmbeddingVector)
		hits = append(hits, interfaces.SearchHit{DataKey: key, Similarity: sim, Item: item})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].DataKey < hits[j].DataKey
	})

	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// All returns every item currently stored for the project.
func (idx *Index) All(projectID string) []*models.DataItem {
	p := idx.projectOf(projectID)
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.DataItem, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DataKey < out[j].DataKey })
	return out
}

// Reset discards all items stored for a project, used by explicit project
// reset (§3: DataItems are "never deleted except by explicit project
// reset").
func (idx *Index) Reset(projectID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.projects, projectID)
}

// Get fetches a single item by data_key.
func (idx *Index) Get(projectID, dataKey string) (*models.DataItem, bool) {
	p := idx.projectOf(projectID)
	p.mu.RLock()
	defer p.mu.RUnlock()
	item, ok := p.items[dataKey]
	return item, ok
}

// CosineSimilarity computes the standard normalized inner product. Vectors
// of mismatched or zero length return 0 rather than panicking, since a
// not-yet-embedded item should never win a search.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ interfaces.VectorIndex = (*Index)(nil)
