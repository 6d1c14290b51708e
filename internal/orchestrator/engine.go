// Package orchestrator implements C8: the Engine wires C1-C7 together and
// exposes the three entry points spec.md names -- Publish, Register and
// Query -- plus Unregister and the project-data listing used by the HTTP
// surface (§4.8). Grounded on the teacher's internal/app.App: one struct
// holding every collaborator, constructed once at startup.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/delivery"
	"github.com/ternarybob/contex/internal/eventlog"
	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/matcher"
	"github.com/ternarybob/contex/internal/models"
	"github.com/ternarybob/contex/internal/parsers"
	"github.com/ternarybob/contex/internal/vectorindex"
)

// Engine is the process-wide orchestrator: one instance per running
// server, holding every project's state behind the per-project locks
// described in §5.
type Engine struct {
	cfg      *common.Config
	logger   arbor.ILogger
	norm     *parsers.Normalizer
	embedder interfaces.EmbeddingClient
	index    interfaces.VectorIndex
	match    *matcher.Matcher
	elog     interfaces.EventLog
	dispatch *delivery.Dispatcher
	broker   *delivery.BrokerSink

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // projectID -> publish-serializing lock

	agentsMu sync.Mutex
	agents   map[string]map[string]*models.Agent // projectID -> agentID -> agent

	activityMu sync.Mutex
	activity   map[string]time.Time // projectID -> last publish/register time
}

// New builds an Engine from a config, logger and embedding client. The
// vector index, matcher, event log and delivery fabric are constructed
// here from config, matching the teacher's app.New wiring order.
func New(cfg *common.Config, logger arbor.ILogger, embedder interfaces.EmbeddingClient) *Engine {
	broker := delivery.NewBrokerSink(logger)

	webhookTimeout, err := time.ParseDuration(cfg.Delivery.WebhookTimeout)
	if err != nil {
		webhookTimeout = 10 * time.Second
	}
	backoffBase := time.Duration(cfg.Delivery.BackoffBaseMilli) * time.Millisecond
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	webhook := delivery.NewWebhookSink(webhookTimeout, cfg.Delivery.WebhookRetries, backoffBase, logger)

	queueSize := cfg.Delivery.QueueSize
	if queueSize <= 0 {
		queueSize = common.DefaultQueueSize
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		norm:     parsers.NewNormalizer(),
		embedder: embedder,
		index:    vectorindex.New(),
		match:    matcher.New(cfg.Matcher.Threshold),
		elog:     eventlog.New(cfg.EventLog.RingSize),
		dispatch: delivery.NewDispatcher(queueSize, broker, webhook, logger),
		broker:   broker,
		locks:    make(map[string]*sync.Mutex),
		agents:   make(map[string]map[string]*models.Agent),
		activity: make(map[string]time.Time),
	}
}

// Broker exposes the WebSocket hub so the server package can register and
// unregister upgraded connections on the canonical broker channel name.
func (e *Engine) Broker() *delivery.BrokerSink { return e.broker }

func (e *Engine) projectLock(projectID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[projectID] = l
	}
	return l
}

func (e *Engine) markActivity(projectID string) {
	e.activityMu.Lock()
	defer e.activityMu.Unlock()
	e.activity[projectID] = time.Now()
}

func (e *Engine) agentOf(projectID, agentID string) (*models.Agent, bool) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()
	byAgent, ok := e.agents[projectID]
	if !ok {
		return nil, false
	}
	a, ok := byAgent[agentID]
	return a, ok
}

func (e *Engine) storeAgent(agent *models.Agent) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()
	byAgent, ok := e.agents[agent.ProjectID]
	if !ok {
		byAgent = make(map[string]*models.Agent)
		e.agents[agent.ProjectID] = byAgent
	}
	byAgent[agent.AgentID] = agent
}

func (e *Engine) dropAgent(projectID, agentID string) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()
	if byAgent, ok := e.agents[projectID]; ok {
		delete(byAgent, agentID)
	}
}

// PublishResult is the outcome of a successful Publish call (§6).
type PublishResult struct {
	ProjectID string
	DataKey   string
	Sequence  int64
}

// Publish normalizes raw, embeds it, assigns the next project sequence,
// upserts the vector index and incrementally recomputes every agent's
// subscriptions, dispatching at most one data_update per matching agent
// (§4.8, §8 invariant 4). Embedding failures abort before any sequence is
// assigned, per §7's "no partial state" propagation rule.
func (e *Engine) Publish(ctx context.Context, projectID, dataKey string, raw any, hint string, metadata map[string]any) (*PublishResult, error) {
	if projectID == "" {
		return nil, contexerr.Validation("project_id is required")
	}
	if dataKey == "" {
		return nil, contexerr.Validation("data_key is required")
	}
	if raw == nil {
		return nil, contexerr.Validation("data is required")
	}

	norm := e.norm.Normalize(dataKey, raw, hint)

	embedCtx, cancel := e.embeddingDeadline(ctx)
	defer cancel()
	vector, err := e.embedder.Embed(embedCtx, norm.EmbeddingText)
	if err != nil {
		return nil, contexerr.Embedding(err, "failed to embed data_key %q", dataKey)
	}

	lock := e.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	seq := e.elog.AssignSeq(projectID)

	item := &models.DataItem{
		ProjectID:     projectID,
		DataKey:       dataKey,
		Raw:           raw,
		Format:        norm.Format,
		Normalized:    norm.Normalized,
		IsStructured:  norm.IsStructured,
		EmbeddingText: norm.EmbeddingText,
		Sequence:      seq,
		Metadata:      metadata,
		UpdatedAt:     now,
	}
	e.index.Upsert(projectID, dataKey, vector, item, seq)

	e.elog.Append(projectID, models.Event{
		ProjectID: projectID,
		Sequence:  seq,
		Type:      models.EventGeneric,
		Payload: models.GenericEventPayload{
			Type:      models.WireTypeEvent,
			EventType: "data_published",
			Sequence:  seq,
			Data:      map[string]any{"data_key": dataKey},
		},
		CreatedAt: now,
	})

	matchedByAgent := e.match.OnPublish(projectID, item)
	for agentID, needs := range matchedByAgent {
		agent, ok := e.agentOf(projectID, agentID)
		if !ok {
			continue
		}
		event := models.Event{
			ProjectID: projectID,
			Sequence:  seq,
			Type:      models.EventDataUpdate,
			Payload: models.DataUpdatePayload{
				Type:         models.WireTypeDataUpdate,
				Sequence:     seq,
				DataKey:      dataKey,
				Data:         raw,
				MatchedNeeds: needs,
			},
			CreatedAt: now,
		}
		e.dispatch.Enqueue(agent, event)
	}

	e.markActivity(projectID)
	return &PublishResult{ProjectID: projectID, DataKey: dataKey, Sequence: seq}, nil
}

// RegisterResult is the outcome of a successful Register call (§6).
type RegisterResult struct {
	AgentID          string
	ProjectID        string
	Channel          string
	MatchedNeeds     map[string]int
	CaughtUpEvents   int
	LastSeenSequence int64
	CatchupTruncated bool
}

// Register embeds an agent's needs, snapshots the currently matching
// items, assigns a last-seen cursor and dispatches an initial_context
// notification (§4.8). Re-registering the same agent_id replaces its
// prior record and produces a fresh snapshot, per §8's idempotence rule.
func (e *Engine) Register(ctx context.Context, agentID, projectID string, needs []string, method models.NotificationMethod, channelOrURL, secret string, lastSeenSequence int64, hasLastSeen bool) (*RegisterResult, error) {
	if agentID == "" {
		return nil, contexerr.Validation("agent_id is required")
	}
	if projectID == "" {
		return nil, contexerr.Validation("project_id is required")
	}
	if len(needs) == 0 {
		return nil, contexerr.Validation("data_needs must contain at least one need")
	}
	switch method {
	case models.NotificationBroker:
	case models.NotificationWebhook:
		if channelOrURL == "" {
			return nil, contexerr.Validation("webhook_url is required for notification_method=webhook")
		}
	default:
		return nil, contexerr.Validation("unknown notification_method %q", method)
	}

	needVectors, err := e.embedder.EmbedBatch(ctx, needs)
	if err != nil {
		return nil, contexerr.Embedding(err, "failed to embed needs for agent %q", agentID)
	}

	agent := &models.Agent{
		ProjectID:    projectID,
		AgentID:      agentID,
		Needs:        needs,
		NeedVectors:  needVectors,
		Method:       method,
		RegisteredAt: time.Now(),
	}
	if method == models.NotificationWebhook {
		agent.WebhookURL = channelOrURL
		agent.WebhookSecret = secret
	}

	lock := e.projectLock(projectID)
	lock.Lock()

	snapshot := e.match.RegisterAgent(projectID, agent, e.index)
	currentSeq := e.elog.CurrentSeq(projectID)

	truncated := false
	caughtUp := 0
	if hasLastSeen && lastSeenSequence > 0 {
		events, trunc := e.elog.Since(projectID, lastSeenSequence)
		truncated = trunc
		caughtUp = len(events)
	}
	agent.LastSeenSequence = currentSeq
	e.storeAgent(agent)

	lock.Unlock()

	matchedNeeds := make(map[string]int, len(needs))
	context := make(map[string][]models.MatchedItem, len(needs))
	for need, entries := range snapshot {
		matchedNeeds[need] += len(entries)
		items := make([]models.MatchedItem, 0, len(entries))
		for _, entry := range entries {
			item, ok := e.index.Get(projectID, entry.DataKey)
			var data any
			if ok {
				data = item.Raw
			}
			items = append(items, models.MatchedItem{
				DataKey:    entry.DataKey,
				Data:       data,
				Similarity: entry.Similarity,
				Sequence:   entry.EntrySeq,
			})
		}
		context[need] = items
	}

	e.dispatch.Enqueue(agent, models.Event{
		ProjectID: projectID,
		Sequence:  currentSeq,
		Type:      models.EventInitialContext,
		Payload: models.InitialContextPayload{
			Type:     models.WireTypeInitialContext,
			Sequence: currentSeq,
			Context:  context,
		},
		CreatedAt: time.Now(),
	})

	e.markActivity(projectID)

	return &RegisterResult{
		AgentID:          agentID,
		ProjectID:        projectID,
		Channel:          agent.BrokerChannelName(),
		MatchedNeeds:     matchedNeeds,
		CaughtUpEvents:   caughtUp,
		LastSeenSequence: currentSeq,
		CatchupTruncated: truncated,
	}, nil
}

// Unregister removes an agent's subscriptions and stops its delivery
// worker. Unregistering an unknown agent is a NotFound error (§7).
func (e *Engine) Unregister(projectID, agentID string) error {
	if _, ok := e.agentOf(projectID, agentID); !ok {
		return contexerr.NotFound("agent %q not registered in project %q", agentID, projectID)
	}

	lock := e.projectLock(projectID)
	lock.Lock()
	e.match.UnregisterAgent(projectID, agentID)
	e.dropAgent(projectID, agentID)
	lock.Unlock()

	e.dispatch.Stop(agentID)
	return nil
}

// QueryHit is one ranked result of a Query call.
type QueryHit struct {
	DataKey    string
	Data       any
	Similarity float32
	Sequence   int64
	UpdatedAt  time.Time
}

// Query embeds q and returns the top-k items in the project by cosine
// similarity (§4.8). Reads never hold the project lock: they observe
// either the pre- or post-publish state, never a torn one, because
// VectorIndex.Upsert is the single atomic write Search/All read against.
func (e *Engine) Query(ctx context.Context, projectID, q string, k int) ([]QueryHit, error) {
	if projectID == "" {
		return nil, contexerr.Validation("project_id is required")
	}
	if q == "" {
		return nil, contexerr.Validation("query is required")
	}
	if k <= 0 {
		k = 10
	}

	embedCtx, cancel := e.embeddingDeadline(ctx)
	defer cancel()
	vector, err := e.embedder.Embed(embedCtx, q)
	if err != nil {
		return nil, contexerr.Embedding(err, "failed to embed query")
	}

	hits := e.index.Search(projectID, vector, k)
	out := make([]QueryHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, QueryHit{
			DataKey:    h.DataKey,
			Data:       h.Item.Raw,
			Similarity: h.Similarity,
			Sequence:   h.Item.Sequence,
			UpdatedAt:  h.Item.UpdatedAt,
		})
	}
	return out, nil
}

// ListProjectData returns every item currently stored for a project,
// ordered by data_key, backing GET /projects/{id}/data.
func (e *Engine) ListProjectData(projectID string) []*models.DataItem {
	return e.index.All(projectID)
}

// ResetProject discards all state for a project -- items, subscriptions,
// sequence counter and registered agents -- per §3's "never deleted
// except by explicit project reset" lifecycle rule. Agents must
// re-register afterward; their delivery workers are stopped.
func (e *Engine) ResetProject(projectID string) {
	lock := e.projectLock(projectID)
	lock.Lock()

	e.agentsMu.Lock()
	byAgent := e.agents[projectID]
	delete(e.agents, projectID)
	e.agentsMu.Unlock()

	e.index.Reset(projectID)
	e.elog.Reset(projectID)
	e.match.ResetProject(projectID)

	lock.Unlock()

	for agentID := range byAgent {
		e.dispatch.Stop(agentID)
	}

	e.activityMu.Lock()
	delete(e.activity, projectID)
	e.activityMu.Unlock()
}

// embeddingDeadline applies the configured embedding timeout on top of the
// caller's context, honoring whichever deadline is tighter (§5).
func (e *Engine) embeddingDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout, err := time.ParseDuration(e.cfg.Embedding.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// idleProjects returns project IDs whose last publish/register activity
// is older than ttl, used by the maintenance sweep.
func (e *Engine) idleProjects(ttl time.Duration) []string {
	e.activityMu.Lock()
	defer e.activityMu.Unlock()

	cutoff := time.Now().Add(-ttl)
	var idle []string
	for projectID, last := range e.activity {
		if last.Before(cutoff) {
			idle = append(idle, projectID)
		}
	}
	sort.Strings(idle)
	return idle
}
