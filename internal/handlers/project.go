package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/orchestrator"
)

// ProjectHandler serves GET /projects/{id}/data (§6).
type ProjectHandler struct {
	engine *orchestrator.Engine
	logger arbor.ILogger
}

func NewProjectHandler(engine *orchestrator.Engine, logger arbor.ILogger) *ProjectHandler {
	return &ProjectHandler{engine: engine, logger: logger}
}

func (h *ProjectHandler) ListData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	projectID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/projects/"), "/data")
	if projectID == "" {
		WriteError(w, contexerr.Validation("project id is required in path"))
		return
	}

	items := h.engine.ListProjectData(projectID)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"data_key":      item.DataKey,
			"data":          item.Raw,
			"format":        item.Format,
			"is_structured": item.IsStructured,
			"sequence":      item.Sequence,
			"updated_at":    item.UpdatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, out)
}
