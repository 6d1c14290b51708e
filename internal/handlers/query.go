package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/orchestrator"
)

// QueryHandler serves POST /query (§6).
type QueryHandler struct {
	engine *orchestrator.Engine
	logger arbor.ILogger
}

func NewQueryHandler(engine *orchestrator.Engine, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{engine: engine, logger: logger}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, contexerr.Validation("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, contexerr.Validation("%v", err))
		return
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	hits, err := h.engine.Query(r.Context(), req.ProjectID, req.Query, maxResults)
	if err != nil {
		h.logger.Warn().Err(err).Str("project_id", req.ProjectID).Msg("query failed")
		WriteError(w, err)
		return
	}

	results := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		results = append(results, map[string]any{
			"data_key":        hit.DataKey,
			"data":            hit.Data,
			"similarity_score": hit.Similarity,
			"sequence":        hit.Sequence,
			"timestamp":       hit.UpdatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
