// Package matcher implements C5: derives and maintains, per project, the
// set of agent-need-to-data_key matches above the similarity threshold tau
// (§4.5). It never performs I/O; all vectors are supplied by the caller
// (already produced by C3/C4), matching the teacher's preference for
// small, synchronous, side-effect-free core services.
package matcher

import (
	"sort"
	"sync"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
	"github.com/ternarybob/contex/internal/vectorindex"
)

// agentSubs holds one Subscription per registered need, indexed by need
// position so that a repeated need string does not collide.
type agentSubs struct {
	agent *models.Agent
	subs  []*models.Subscription // len == len(agent.Needs)
}

type projectState struct {
	mu     sync.Mutex
	agents map[string]*agentSubs // agentID -> subs
}

// Matcher is the process-wide, per-project match-set store.
type Matcher struct {
	threshold float32

	mu       sync.Mutex
	projects map[string]*projectState
}

// New builds a Matcher with the given similarity threshold (tau).
func New(threshold float64) *Matcher {
	return &Matcher{
		threshold: float32(threshold),
		projects:  make(map[string]*projectState),
	}
}

func (m *Matcher) projectOf(projectID string) *projectState {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		p = &projectState{agents: make(map[string]*agentSubs)}
		m.projects[projectID] = p
	}
	return p
}

// RegisterAgent computes the agent's initial match sets against every item
// currently held in the project's vector index, one subscription per need.
// The returned map is keyed by need string and is the basis for the
// initial_context notification; callers resolve data into models.MatchedItem.
func (m *Matcher) RegisterAgent(projectID string, agent *models.Agent, index interfaces.VectorIndex) map[string][]models.MatchEntry {
	p := m.projectOf(projectID)
	p.mu.Lock()
	defer p.mu.Unlock()

	as := &agentSubs{agent: agent, subs: make([]*models.Subscription, len(agent.Needs))}
	result := make(map[string][]models.MatchEntry, len(agent.Needs))

	items := index.All(projectID)
	for i, need := range agent.Needs {
		sub := &models.Subscription{AgentID: agent.AgentID, NeedIdx: i, Need: need, Matches: make(map[string]models.MatchEntry)}
		var needVec []float32
		if i < len(agent.NeedVectors) {
			needVec = agent.NeedVectors[i]
		}

		var entries []models.MatchEntry
		for _, item := range items {
			sim := vectorindex.CosineSimilarity(needVec, item.EmbeddingVector)
			if sim >= m.threshold {
				entry := models.MatchEntry{DataKey: item.DataKey, Similarity: sim, EntrySeq: item.Sequence}
				sub.Matches[item.DataKey] = entry
				entries = append(entries, entry)
			}
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].DataKey < entries[b].DataKey })

		as.subs[i] = sub
		result[need] = entries
	}

	p.agents[agent.AgentID] = as
	return result
}

// UnregisterAgent drops all of an agent's match-set state.
func (m *Matcher) UnregisterAgent(projectID, agentID string) {
	p := m.projectOf(projectID)
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.agents, agentID)
}

// OnPublish re-evaluates every registered agent's needs against a single
// newly-published (or re-published) item and updates the stored match
// sets. The returned map holds, per agent_id, the list of need strings
// that match the item after this update -- empty or absent agents get no
// notification. Per invariant, the caller sends at most one data_update
// per agent per publish regardless of how many needs match.
func (m *Matcher) OnPublish(projectID string, item *models.DataItem) map[string][]string {
	p := m.projectOf(projectID)
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string][]string)
	for agentID, as := range p.agents {
		var matchedNeeds []string
		for i, sub := range as.subs {
			var needVec []float32
			if i < len(as.agent.NeedVectors) {
				needVec = as.agent.NeedVectors[i]
			}
			sim := vectorindex.CosineSimilarity(needVec, item.EmbeddingVector)
			if sim >= m.threshold {
				sub.Matches[item.DataKey] = models.MatchEntry{DataKey: item.DataKey, Similarity: sim, EntrySeq: item.Sequence}
				matchedNeeds = append(matchedNeeds, sub.Need)
			} else {
				// Below threshold: drop any prior match. Per §9 Open Question c,
				// this produces no separate "unmatch" event -- silence is the signal.
				delete(sub.Matches, item.DataKey)
			}
		}
		if len(matchedNeeds) > 0 {
			result[agentID] = matchedNeeds
		}
	}
	return result
}

// ResetProject drops all agent subscription state for a project, used by
// explicit project reset: agents must re-register to resume matching.
func (m *Matcher) ResetProject(projectID string) {
	m.mu.Lock()
	delete(m.projects, projectID)
	m.mu.Unlock()
}

// Agents returns the currently registered agents for a project, used by the
// orchestrator to resolve delivery sinks without holding matcher internals.
func (m *Matcher) Agents(projectID string) []*models.Agent {
	p := m.projectOf(projectID)
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*models.Agent, 0, len(p.agents))
	for _, as := range p.agents {
		out = append(out, as.agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}
