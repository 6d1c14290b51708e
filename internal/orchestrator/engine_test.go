package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/delivery"
	"github.com/ternarybob/contex/internal/models"
)

// recordingSink captures every event the dispatcher delivers so tests can
// count notifications per type.
type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *recordingSink) Deliver(ctx context.Context, agent *models.Agent, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) dataUpdates() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.Type == models.EventDataUpdate {
			out = append(out, ev)
		}
	}
	return out
}

// fakeEmbedder maps known substrings to fixed directions so tests can
// control cosine similarity deterministically without a real model.
type fakeEmbedder struct{}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	switch {
	case contains(text, "coding style"):
		return []float32{1, 0, 0}
	case contains(text, "unrelated topic"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int   { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) IsAvailable(ctx context.Context) bool { return true }

func testEngine() *Engine {
	cfg := common.NewDefaultConfig()
	cfg.Matcher.Threshold = 0.5
	return New(cfg, arbor.NewLogger(), &fakeEmbedder{})
}

// TestPublishThenRegisterMatches covers E1: a publish whose embedding
// matches a registered agent's need produces that need in the snapshot.
func TestPublishThenRegisterMatches(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	_, err := e.Publish(ctx, "p1", "coding_standard", "use 4 spaces, coding style guide", "", nil)
	require.NoError(t, err)

	result, err := e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedNeeds["coding style"])
}

// TestRepublishSameKeyBumpsSequenceWithSingleUpdate covers E2: publishing
// the same data_key again increments the project sequence and produces
// exactly one data_update notification per matching agent.
func TestRepublishSameKeyBumpsSequenceWithSingleUpdate(t *testing.T) {
	e := testEngine()
	sink := &recordingSink{}
	e.dispatch = delivery.NewDispatcher(256, sink, sink, arbor.NewLogger())
	ctx := context.Background()

	r1, err := e.Publish(ctx, "p1", "k", "coding style v1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.Sequence)

	_, err = e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)

	r2, err := e.Publish(ctx, "p1", "k", "coding style v2", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r2.Sequence)

	require.Eventually(t, func() bool { return len(sink.dataUpdates()) == 1 }, time.Second, 5*time.Millisecond)
	update := sink.dataUpdates()[0]
	assert.Equal(t, int64(2), update.Sequence)
	assert.Equal(t, "k", update.Payload.(models.DataUpdatePayload).DataKey)
}

// TestNonMatchingNeedYieldsNoMatch covers E3: a need whose embedding does
// not meet the similarity threshold yields zero matches.
func TestNonMatchingNeedYieldsNoMatch(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	_, err := e.Publish(ctx, "p1", "k", "coding style content", "", nil)
	require.NoError(t, err)

	result, err := e.Register(ctx, "agent1", "p1", []string{"unrelated topic"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchedNeeds["unrelated topic"])
}

func TestPublishValidatesRequiredFields(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	_, err := e.Publish(ctx, "", "k", "x", "", nil)
	assert.Error(t, err)
	_, err = e.Publish(ctx, "p1", "", "x", "", nil)
	assert.Error(t, err)
	_, err = e.Publish(ctx, "p1", "k", nil, "", nil)
	assert.Error(t, err)
}

func TestRegisterRejectsWebhookWithoutURL(t *testing.T) {
	e := testEngine()
	_, err := e.Register(context.Background(), "a1", "p1", []string{"x"}, models.NotificationWebhook, "", "", 0, false)
	assert.Error(t, err)
}

func TestUnregisterUnknownAgentIsNotFound(t *testing.T) {
	e := testEngine()
	err := e.Unregister("p1", "ghost")
	assert.Error(t, err)
}

func TestUnregisterRemovesAgentFromFutureMatches(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	_, err := e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)
	require.NoError(t, e.Unregister("p1", "agent1"))

	_, err = e.Publish(ctx, "p1", "k", "coding style content", "", nil)
	require.NoError(t, err)
	// The matcher no longer holds the agent, so the publish matched nobody.
	assert.Empty(t, e.match.Agents("p1"))
}

func TestQueryReturnsTopKByCosineSimilarity(t *testing.T) {
	e := testEngine()
	ctx := context.Background()

	_, err := e.Publish(ctx, "p1", "a", "coding style doc", "", nil)
	require.NoError(t, err)
	_, err = e.Publish(ctx, "p1", "b", "unrelated topic doc", "", nil)
	require.NoError(t, err)

	hits, err := e.Query(ctx, "p1", "coding style", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].DataKey)
}

func TestListProjectDataOrderedByKey(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	_, err := e.Publish(ctx, "p1", "z", "content", "", nil)
	require.NoError(t, err)
	_, err = e.Publish(ctx, "p1", "a", "content", "", nil)
	require.NoError(t, err)

	items := e.ListProjectData("p1")
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].DataKey)
	assert.Equal(t, "z", items[1].DataKey)
}

func TestResetProjectClearsAllState(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	_, err := e.Publish(ctx, "p1", "k", "content", "", nil)
	require.NoError(t, err)
	_, err = e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)

	e.ResetProject("p1")

	assert.Empty(t, e.ListProjectData("p1"))
	assert.Empty(t, e.idleProjects(0))
}

// TestCatchUpTruncationIsSignaled covers the ring-buffer eviction path: a
// tiny event-log capacity plus many publishes before register must report
// catchup_truncated when the requested cursor has already been evicted.
func TestCatchUpTruncationIsSignaled(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Matcher.Threshold = 0.5
	cfg.EventLog.RingSize = 2
	e := New(cfg, arbor.NewLogger(), &fakeEmbedder{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Publish(ctx, "p1", "k", "content", "", nil)
		require.NoError(t, err)
	}

	result, err := e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 1, true)
	require.NoError(t, err)
	assert.True(t, result.CatchupTruncated)
}

func TestEngineAllowsConcurrentPublishesToDifferentProjects(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	done := make(chan error, 2)

	go func() {
		_, err := e.Publish(ctx, "p1", "k", "content", "", nil)
		done <- err
	}()
	go func() {
		_, err := e.Publish(ctx, "p2", "k", "content", "", nil)
		done <- err
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("publish did not complete")
		}
	}
}
