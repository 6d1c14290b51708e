package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/models"
	"github.com/ternarybob/contex/internal/orchestrator"
)

// RegisterHandler serves POST /agents/register and POST
// /agents/{id}/unregister (§6).
type RegisterHandler struct {
	engine *orchestrator.Engine
	logger arbor.ILogger
}

func NewRegisterHandler(engine *orchestrator.Engine, logger arbor.ILogger) *RegisterHandler {
	return &RegisterHandler{engine: engine, logger: logger}
}

func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, contexerr.Validation("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, contexerr.Validation("%v", err))
		return
	}
	method, ok := req.Method()
	if !ok {
		WriteError(w, contexerr.Validation("unknown notification_method %q", req.NotificationMethod))
		return
	}

	channelOrURL := req.WebhookURL
	lastSeen, hasLastSeen := req.ParsedLastSeenSequence()

	result, err := h.engine.Register(r.Context(), req.AgentID, req.ProjectID, req.DataNeeds, method, channelOrURL, req.WebhookSecret, lastSeen, hasLastSeen)
	if err != nil {
		h.logger.Warn().Err(err).Str("agent_id", req.AgentID).Str("project_id", req.ProjectID).Msg("register failed")
		WriteError(w, err)
		return
	}

	resp := map[string]any{
		"agent_id":           result.AgentID,
		"project_id":         result.ProjectID,
		"matched_needs":      result.MatchedNeeds,
		"caught_up_events":   result.CaughtUpEvents,
		"last_seen_sequence": result.LastSeenSequence,
		"catchup_truncated":  result.CatchupTruncated,
	}
	if method == models.NotificationBroker {
		resp["notification_channel"] = result.Channel
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Unregister serves POST /agents/{id}/unregister. The project_id is taken
// from a query parameter since the path only carries the agent id (§6).
func (h *RegisterHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agentID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/agents/"), "/unregister")
	projectID := r.URL.Query().Get("project_id")
	if agentID == "" || projectID == "" {
		WriteError(w, contexerr.Validation("agent id and project_id are required"))
		return
	}

	if err := h.engine.Unregister(projectID, agentID); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
