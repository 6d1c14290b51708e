package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/orchestrator"
)

// PublishHandler serves POST /data/publish (§6).
type PublishHandler struct {
	engine *orchestrator.Engine
	logger arbor.ILogger
}

func NewPublishHandler(engine *orchestrator.Engine, logger arbor.ILogger) *PublishHandler {
	return &PublishHandler{engine: engine, logger: logger}
}

func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, contexerr.Validation("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, contexerr.Validation("%v", err))
		return
	}

	result, err := h.engine.Publish(r.Context(), req.ProjectID, req.DataKey, req.Data, req.DataFormat, req.Metadata)
	if err != nil {
		h.logger.Warn().Err(err).Str("project_id", req.ProjectID).Str("data_key", req.DataKey).Msg("publish failed")
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"project_id": result.ProjectID,
		"data_key":   result.DataKey,
		"sequence":   result.Sequence,
	})
}
