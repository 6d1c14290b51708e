package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/contex/internal/models"
	"github.com/ternarybob/contex/internal/vectorindex"
)

func upsertItem(idx *vectorindex.Index, key string, vec []float32, seq int64) {
	idx.Upsert("p", key, vec, &models.DataItem{ProjectID: "p", DataKey: key, EmbeddingVector: vec, Sequence: seq}, seq)
}

func TestRegisterAgentSnapshotsExistingItems(t *testing.T) {
	idx := vectorindex.New()
	upsertItem(idx, "a", []float32{1, 0}, 1)
	upsertItem(idx, "b", []float32{0, 1}, 2)

	m := New(0.5)
	agent := &models.Agent{ProjectID: "p", AgentID: "agent1", Needs: []string{"need1"}, NeedVectors: [][]float32{{1, 0}}}
	snapshot := m.RegisterAgent("p", agent, idx)

	require.Contains(t, snapshot, "need1")
	assert.Len(t, snapshot["need1"], 1)
	assert.Equal(t, "a", snapshot["need1"][0].DataKey)
}

func TestOnPublishNotifiesOncePerAgentAcrossMultipleNeeds(t *testing.T) {
	idx := vectorindex.New()
	m := New(0.5)
	agent := &models.Agent{
		ProjectID:   "p",
		AgentID:     "agent1",
		Needs:       []string{"need1", "need2"},
		NeedVectors: [][]float32{{1, 0}, {1, 0}},
	}
	m.RegisterAgent("p", agent, idx)

	item := &models.DataItem{ProjectID: "p", DataKey: "x", EmbeddingVector: []float32{1, 0}, Sequence: 1}
	idx.Upsert("p", "x", []float32{1, 0}, item, 1)

	matched := m.OnPublish("p", item)
	require.Contains(t, matched, "agent1")
	assert.ElementsMatch(t, []string{"need1", "need2"}, matched["agent1"])
}

func TestOnPublishBelowThresholdDropsSilently(t *testing.T) {
	idx := vectorindex.New()
	m := New(0.9)
	agent := &models.Agent{ProjectID: "p", AgentID: "a", Needs: []string{"need"}, NeedVectors: [][]float32{{1, 0}}}
	m.RegisterAgent("p", agent, idx)

	// First publish matches (identical vector).
	item1 := &models.DataItem{ProjectID: "p", DataKey: "x", EmbeddingVector: []float32{1, 0}, Sequence: 1}
	idx.Upsert("p", "x", []float32{1, 0}, item1, 1)
	matched := m.OnPublish("p", item1)
	assert.Contains(t, matched, "a")

	// Re-publish with an orthogonal vector drops below threshold: no
	// notification, and the entry is silently removed (no "unmatch" event).
	item2 := &models.DataItem{ProjectID: "p", DataKey: "x", EmbeddingVector: []float32{0, 1}, Sequence: 2}
	idx.Upsert("p", "x", []float32{0, 1}, item2, 2)
	matched = m.OnPublish("p", item2)
	assert.NotContains(t, matched, "a")
}

func TestUnregisterAgentDropsState(t *testing.T) {
	idx := vectorindex.New()
	m := New(0.5)
	agent := &models.Agent{ProjectID: "p", AgentID: "a", Needs: []string{"need"}, NeedVectors: [][]float32{{1, 0}}}
	m.RegisterAgent("p", agent, idx)
	m.UnregisterAgent("p", "a")

	item := &models.DataItem{ProjectID: "p", DataKey: "x", EmbeddingVector: []float32{1, 0}, Sequence: 1}
	idx.Upsert("p", "x", []float32{1, 0}, item, 1)
	matched := m.OnPublish("p", item)
	assert.Empty(t, matched)
}

func TestAgentsSortedByID(t *testing.T) {
	idx := vectorindex.New()
	m := New(0.5)
	m.RegisterAgent("p", &models.Agent{ProjectID: "p", AgentID: "zeta", Needs: []string{"n"}, NeedVectors: [][]float32{{1}}}, idx)
	m.RegisterAgent("p", &models.Agent{ProjectID: "p", AgentID: "alpha", Needs: []string{"n"}, NeedVectors: [][]float32{{1}}}, idx)

	agents := m.Agents("p")
	require.Len(t, agents, 2)
	assert.Equal(t, "alpha", agents[0].AgentID)
	assert.Equal(t, "zeta", agents[1].AgentID)
}

func TestResetProject(t *testing.T) {
	idx := vectorindex.New()
	m := New(0.5)
	m.RegisterAgent("p", &models.Agent{ProjectID: "p", AgentID: "a", Needs: []string{"n"}, NeedVectors: [][]float32{{1}}}, idx)
	m.ResetProject("p")
	assert.Empty(t, m.Agents("p"))
}
