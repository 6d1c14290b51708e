package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/models"
)

type recordingSink struct {
	mu         sync.Mutex
	sequences  []int64
	deliverErr error
}

func (s *recordingSink) Deliver(ctx context.Context, agent *models.Agent, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences = append(s.sequences, event.Sequence)
	return s.deliverErr
}

func (s *recordingSink) seen() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.sequences))
	copy(out, s.sequences)
	return out
}

func TestDispatcherDeliversInEnqueueOrder(t *testing.T) {
	broker := &recordingSink{}
	d := NewDispatcher(256, broker, broker, arbor.NewLogger())
	agent := &models.Agent{AgentID: "a1", Method: models.NotificationBroker}

	for i := int64(1); i <= 5; i++ {
		d.Enqueue(agent, models.Event{Sequence: i})
	}

	require.Eventually(t, func() bool { return len(broker.seen()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, broker.seen())
}

func TestDispatcherRoutesByNotificationMethod(t *testing.T) {
	broker := &recordingSink{}
	webhook := &recordingSink{}
	d := NewDispatcher(256, broker, webhook, arbor.NewLogger())

	d.Enqueue(&models.Agent{AgentID: "a1", Method: models.NotificationBroker}, models.Event{Sequence: 1})
	d.Enqueue(&models.Agent{AgentID: "a2", Method: models.NotificationWebhook}, models.Event{Sequence: 1})

	require.Eventually(t, func() bool { return len(broker.seen()) == 1 && len(webhook.seen()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestAgentQueueCoalescesWhenFull(t *testing.T) {
	q := newAgentQueue(2)
	q.push(models.Event{Sequence: 1})
	q.push(models.Event{Sequence: 2})
	q.push(models.Event{Sequence: 3}) // drops seq 1, marks lagging

	assert.True(t, q.takeLagging())
	assert.False(t, q.takeLagging()) // cleared after read

	e, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, int64(2), e.Sequence)
	e, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, int64(3), e.Sequence)
}

func TestAgentQueueCloseUnblocksPop(t *testing.T) {
	q := newAgentQueue(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock after close")
	}
}

func TestDispatcherStopClosesQueue(t *testing.T) {
	broker := &recordingSink{}
	d := NewDispatcher(256, broker, broker, arbor.NewLogger())
	agent := &models.Agent{AgentID: "a1", Method: models.NotificationBroker}
	d.Enqueue(agent, models.Event{Sequence: 1})
	require.Eventually(t, func() bool { return len(broker.seen()) == 1 }, time.Second, 5*time.Millisecond)

	d.Stop("a1")
	assert.False(t, d.IsLagging("a1"))
}
