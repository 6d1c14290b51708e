package orchestrator

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ternarybob/contex/internal/models"
)

// StartSweep registers and starts the periodic maintenance job described
// in SPEC_FULL.md §B: idle project eviction plus a lagging-agent
// recheck, scheduled via the teacher's robfig/cron pattern
// (internal/services/scheduler/scheduler_service.go). Returns a stop
// function the caller should invoke on shutdown; returns a no-op stop
// function if sweeping is disabled in config.
func (e *Engine) StartSweep() (stop func()) {
	if !e.cfg.Sweep.Enabled {
		return func() {}
	}

	idleTTL, err := time.ParseDuration(e.cfg.Sweep.IdleTTL)
	if err != nil || idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}

	c := cron.New()
	schedule := e.cfg.Sweep.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}

	_, err = c.AddFunc(schedule, func() {
		e.sweepOnce(idleTTL)
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("schedule", schedule).Msg("invalid sweep schedule, maintenance disabled")
		return func() {}
	}

	c.Start()
	return func() { c.Stop() }
}

// sweepOnce runs one maintenance pass: evict projects idle past idleTTL,
// and re-deliver a fresh initial_context to any agent whose queue
// overflowed since the last pass (§5's lagging-agent recovery).
func (e *Engine) sweepOnce(idleTTL time.Duration) {
	for _, projectID := range e.idleProjects(idleTTL) {
		e.logger.Info().Str("project_id", projectID).Msg("evicting idle project state")
		e.ResetProject(projectID)
	}

	e.agentsMu.Lock()
	type laggingCandidate struct {
		projectID, agentID string
	}
	var candidates []laggingCandidate
	for projectID, byAgent := range e.agents {
		for agentID := range byAgent {
			candidates = append(candidates, laggingCandidate{projectID, agentID})
		}
	}
	e.agentsMu.Unlock()

	for _, c := range candidates {
		if !e.dispatch.IsLagging(c.agentID) {
			continue
		}
		e.resendFreshSnapshot(c.projectID, c.agentID)
	}
}

// resendFreshSnapshot rebuilds an agent's match set from scratch and
// re-delivers it as a new initial_context, resetting last_seen_sequence
// to the project's current sequence -- the recovery path for an agent
// marked lagging after its queue overflowed (§5).
func (e *Engine) resendFreshSnapshot(projectID, agentID string) {
	agent, ok := e.agentOf(projectID, agentID)
	if !ok {
		return
	}

	lock := e.projectLock(projectID)
	lock.Lock()
	snapshot := e.match.RegisterAgent(projectID, agent, e.index)
	currentSeq := e.elog.CurrentSeq(projectID)
	agent.LastSeenSequence = currentSeq
	agent.Lagging = false
	lock.Unlock()

	context := make(map[string][]models.MatchedItem, len(snapshot))
	for need, entries := range snapshot {
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

	e.logger.Info().Str("project_id", projectID).Str("agent_id", agentID).Msg("re-delivered fresh snapshot to lagging agent")
}
