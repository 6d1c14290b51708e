package delivery

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// agentQueue is a bounded, mutex-guarded FIFO of pending events for one
// agent. A full queue drops its oldest entry, whatever its data_key, and
// marks the agent lagging, rather than blocking the publish path (§5).
// Pending updates for the same data_key are not merged, and the queue is
// not drained when it overflows.
type agentQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	events   []models.Event
	capacity int
	closed   bool
	lagging  bool
}

func newAgentQueue(capacity int) *agentQueue {
	q := &agentQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *agentQueue) push(event models.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) >= q.capacity {
		q.events = q.events[1:]
		q.lagging = true
	}
	q.events = append(q.events, event)
	q.cond.Signal()
}

func (q *agentQueue) pop() (models.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.events) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.events) == 0 {
		return models.Event{}, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

func (q *agentQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// takeLagging reports and clears the lagging flag. The orchestrator's sweep
// calls it (via Dispatcher.IsLagging) to decide whether to re-send a fresh
// initial_context to the agent.
func (q *agentQueue) takeLagging() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	lagging := q.lagging
	q.lagging = false
	return lagging
}

// Dispatcher owns one serialized worker per agent, delivering events to
// that agent's sink strictly in enqueue order (§5's per-agent ordered
// delivery guarantee). Suspension points are confined to the sink's I/O
// call; the queue itself never blocks a publisher beyond an O(1) push.
type Dispatcher struct {
	logger      arbor.ILogger
	queueSize   int
	brokerSink  interfaces.Sink
	webhookSink interfaces.Sink

	mu     sync.Mutex
	queues map[string]*agentQueue // agentID -> queue
}

func NewDispatcher(queueSize int, brokerSink, webhookSink interfaces.Sink, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		logger:      logger,
		queueSize:   queueSize,
		brokerSink:  brokerSink,
		webhookSink: webhookSink,
		queues:      make(map[string]*agentQueue),
	}
}

func (d *Dispatcher) sinkFor(agent *models.Agent) interfaces.Sink {
	if agent.Method == models.NotificationBroker {
		return d.brokerSink
	}
	return d.webhookSink
}

// Enqueue schedules event for delivery to agent, starting the agent's
// worker goroutine on first use.
func (d *Dispatcher) Enqueue(agent *models.Agent, event models.Event) {
	d.mu.Lock()
	q, ok := d.queues[agent.AgentID]
	if !ok {
		q = newAgentQueue(d.queueSize)
		d.queues[agent.AgentID] = q
		go d.run(agent, q)
	}
	d.mu.Unlock()

	q.push(event)
}

func (d *Dispatcher) run(agent *models.Agent, q *agentQueue) {
	sink := d.sinkFor(agent)
	for {
		event, ok := q.pop()
		if !ok {
			return
		}
		if err := sink.Deliver(context.Background(), agent, event); err != nil {
			d.logger.Warn().Err(err).Str("agent_id", agent.AgentID).Int64("sequence", event.Sequence).Msg("delivery failed")
		}
	}
}

// IsLagging reports and clears whether agent's queue has dropped events
// since the last check.
func (d *Dispatcher) IsLagging(agentID string) bool {
	d.mu.Lock()
	q, ok := d.queues[agentID]
	d.mu.Unlock()
	if !ok {
		return false
	}
	return q.takeLagging()
}

// Stop shuts down an agent's worker, used on unregister.
func (d *Dispatcher) Stop(agentID string) {
	d.mu.Lock()
	q, ok := d.queues[agentID]
	delete(d.queues, agentID)
	d.mu.Unlock()
	if ok {
		q.close()
	}
}
