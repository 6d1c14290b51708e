// Package eventlog implements C6: a per-project monotonic sequence counter
// plus a bounded ring buffer of recent events, giving agents a catch-up
// path via Since(cursor) (§4.6).
package eventlog

import (
	"sync"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

type projectLog struct {
	mu sync.Mutex

	seq int64 // last assigned sequence number

	ring     []models.Event // fixed-size ring buffer, len == capacity once full
	start    int            // index of the oldest entry in ring
	count    int            // number of valid entries currently in ring
	capacity int
}

func newProjectLog(capacity int) *projectLog {
	return &projectLog{ring: make([]models.Event, capacity), capacity: capacity}
}

func (p *projectLog) assignSeq() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

func (p *projectLog) append(event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := (p.start + p.count) % p.capacity
	if p.count < p.capacity {
		p.ring[idx] = event
		p.count++
	} else {
		p.ring[p.start] = event
		p.start = (p.start + 1) % p.capacity
	}
}

// since returns every retained event with Sequence > cursor, oldest first,
// plus whether the oldest retained event is itself already past cursor+1
// (meaning some events between cursor and the oldest retained one were
// evicted -- the catchup_truncated signal).
func (p *projectLog) since(cursor int64) ([]models.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 {
		return nil, false
	}

	oldest := p.ring[p.start]
	truncated := cursor < oldest.Sequence-1 && oldest.Sequence > 1

	var out []models.Event
	for i := 0; i < p.count; i++ {
		e := p.ring[(p.start+i)%p.capacity]
		if e.Sequence > cursor {
			out = append(out, e)
		}
	}
	return out, truncated
}

func (p *projectLog) currentSeq() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// Log is the process-wide, per-project event log store.
type Log struct {
	capacity int

	mu       sync.Mutex
	projects map[string]*projectLog
}

// New builds an event log with the given per-project ring buffer capacity (K).
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{capacity: capacity, projects: make(map[string]*projectLog)}
}

func (l *Log) projectOf(projectID string) *projectLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.projects[projectID]
	if !ok {
		p = newProjectLog(l.capacity)
		l.projects[projectID] = p
	}
	return p
}

// AssignSeq hands out the next sequence number for a project. Must be
// called under the project's single-writer publish serialization (§5) so
// that sequence order matches publish order.
func (l *Log) AssignSeq(projectID string) int64 {
	return l.projectOf(projectID).assignSeq()
}

// Append records an event (already sequenced via AssignSeq) into the
// project's ring buffer, evicting the oldest entry once full.
func (l *Log) Append(projectID string, event models.Event) {
	l.projectOf(projectID).append(event)
}

// Since returns events after cursor and whether the project's retention
// window has already evicted events the caller may have missed.
func (l *Log) Since(projectID string, cursor int64) (events []models.Event, truncated bool) {
	return l.projectOf(projectID).since(cursor)
}

// CurrentSeq returns the last sequence number assigned for a project.
func (l *Log) CurrentSeq(projectID string) int64 {
	return l.projectOf(projectID).currentSeq()
}

// Reset discards a project's sequence counter and ring buffer, used by
// explicit project reset.
func (l *Log) Reset(projectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.projects, projectID)
}

var _ interfaces.EventLog = (*Log)(nil)
