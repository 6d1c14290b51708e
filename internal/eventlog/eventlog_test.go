package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/contex/internal/models"
)

func TestAssignSeqIsContiguousAndMonotonic(t *testing.T) {
	log := New(1024)
	for i := int64(1); i <= 5; i++ {
		assert.Equal(t, i, log.AssignSeq("p"))
	}
}

func TestSinceReturnsEventsAfterCursor(t *testing.T) {
	log := New(1024)
	for i := int64(1); i <= 3; i++ {
		seq := log.AssignSeq("p")
		log.Append("p", models.Event{ProjectID: "p", Sequence: seq})
	}

	events, truncated := log.Since("p", 1)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Sequence)
	assert.Equal(t, int64(3), events[1].Sequence)
	assert.False(t, truncated)
}

func TestSinceSignalsTruncationBeyondRingCapacity(t *testing.T) {
	log := New(3)
	for i := 0; i < 10; i++ {
		seq := log.AssignSeq("p")
		log.Append("p", models.Event{ProjectID: "p", Sequence: seq})
	}

	// Oldest retained is seq 8 (10 assigned, ring holds last 3: 8,9,10).
	events, truncated := log.Since("p", 1)
	assert.True(t, truncated)
	require.Len(t, events, 3)
	assert.Equal(t, int64(8), events[0].Sequence)
}

func TestSinceNotTruncatedWhenCursorCoversRetainedWindow(t *testing.T) {
	log := New(3)
	for i := 0; i < 5; i++ {
		seq := log.AssignSeq("p")
		log.Append("p", models.Event{ProjectID: "p", Sequence: seq})
	}
	// Ring holds seq 3,4,5. Cursor 2 is exactly the entry before the
	// oldest retained event, so nothing was evicted past the cursor.
	events, truncated := log.Since("p", 2)
	assert.False(t, truncated)
	require.Len(t, events, 3)
}

func TestCurrentSeqAndReset(t *testing.T) {
	log := New(1024)
	log.AssignSeq("p")
	log.AssignSeq("p")
	assert.Equal(t, int64(2), log.CurrentSeq("p"))

	log.Reset("p")
	assert.Equal(t, int64(0), log.CurrentSeq("p"))
	events, truncated := log.Since("p", 0)
	assert.Nil(t, events)
	assert.False(t, truncated)
}

func TestProjectsAreIndependent(t *testing.T) {
	log := New(1024)
	log.AssignSeq("p1")
	log.AssignSeq("p1")
	log.AssignSeq("p2")

	assert.Equal(t, int64(2), log.CurrentSeq("p1"))
	assert.Equal(t, int64(1), log.CurrentSeq("p2"))
}
