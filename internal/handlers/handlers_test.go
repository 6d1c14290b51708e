package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/orchestrator"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (stubEmbedder) Dimension() int                       { return 2 }
func (stubEmbedder) ModelName() string                    { return "stub" }
func (stubEmbedder) IsAvailable(ctx context.Context) bool { return true }

func testEngine() *orchestrator.Engine {
	cfg := common.NewDefaultConfig()
	return orchestrator.New(cfg, arbor.NewLogger(), stubEmbedder{})
}

func TestPublishHandlerHappyPath(t *testing.T) {
	engine := testEngine()
	h := NewPublishHandler(engine, arbor.NewLogger())

	body, _ := json.Marshal(map[string]any{"project_id": "p1", "data_key": "k", "data": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/data/publish", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Publish(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p1", resp["project_id"])
	assert.Equal(t, float64(1), resp["sequence"])
}

func TestPublishHandlerRejectsMissingFields(t *testing.T) {
	engine := testEngine()
	h := NewPublishHandler(engine, arbor.NewLogger())

	body, _ := json.Marshal(map[string]any{"data_key": "k"})
	req := httptest.NewRequest(http.MethodPost, "/data/publish", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Publish(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishHandlerRejectsWrongMethod(t *testing.T) {
	engine := testEngine()
	h := NewPublishHandler(engine, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/data/publish", nil)
	w := httptest.NewRecorder()
	h.Publish(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRegisterHandlerHappyPathReturnsChannel(t *testing.T) {
	engine := testEngine()
	h := NewRegisterHandler(engine, arbor.NewLogger())

	body, _ := json.Marshal(map[string]any{
		"agent_id": "a1", "project_id": "p1",
		"data_needs": []string{"need"}, "notification_method": "broker",
	})
	req := httptest.NewRequest(http.MethodPost, "/agents/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "agent:p1:a1", resp["notification_channel"])
}

func TestRegisterHandlerRejectsUnknownMethod(t *testing.T) {
	engine := testEngine()
	h := NewRegisterHandler(engine, arbor.NewLogger())

	body, _ := json.Marshal(map[string]any{
		"agent_id": "a1", "project_id": "p1",
		"data_needs": []string{"need"}, "notification_method": "smoke_signal",
	})
	req := httptest.NewRequest(http.MethodPost, "/agents/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnregisterHandlerRequiresProjectIDQueryParam(t *testing.T) {
	engine := testEngine()
	h := NewRegisterHandler(engine, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/agents/a1/unregister", nil)
	w := httptest.NewRecorder()

	h.Unregister(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnregisterHandlerUnknownAgentIsNotFound(t *testing.T) {
	engine := testEngine()
	h := NewRegisterHandler(engine, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/agents/ghost/unregister?project_id=p1", nil)
	w := httptest.NewRecorder()

	h.Unregister(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryHandlerHappyPath(t *testing.T) {
	engine := testEngine()
	ph := NewPublishHandler(engine, arbor.NewLogger())
	body, _ := json.Marshal(map[string]any{"project_id": "p1", "data_key": "k", "data": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/data/publish", bytes.NewReader(body))
	ph.Publish(httptest.NewRecorder(), req)

	qh := NewQueryHandler(engine, arbor.NewLogger())
	qbody, _ := json.Marshal(map[string]any{"project_id": "p1", "query": "hello"})
	qreq := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(qbody))
	w := httptest.NewRecorder()

	qh.Query(w, qreq)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["total"])
}

func TestProjectHandlerListDataParsesPathAndReturnsItems(t *testing.T) {
	engine := testEngine()
	ph := NewPublishHandler(engine, arbor.NewLogger())
	body, _ := json.Marshal(map[string]any{"project_id": "p1", "data_key": "k", "data": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/data/publish", bytes.NewReader(body))
	ph.Publish(httptest.NewRecorder(), req)

	prh := NewProjectHandler(engine, arbor.NewLogger())
	listReq := httptest.NewRequest(http.MethodGet, "/projects/p1/data", nil)
	w := httptest.NewRecorder()
	prh.ListData(w, listReq)

	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "k", items[0]["data_key"])
}

func TestHealthHandlerReturnsOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	HealthHandler(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
