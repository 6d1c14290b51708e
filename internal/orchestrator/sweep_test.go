package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/models"
)

func TestSweepOnceEvictsIdleProjects(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	_, err := e.Publish(ctx, "p1", "k", "content", "", nil)
	require.NoError(t, err)

	e.sweepOnce(0) // everything is idle immediately with a zero TTL

	assert.Empty(t, e.ListProjectData("p1"))
}

func TestSweepOnceLeavesActiveProjectsAlone(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	_, err := e.Publish(ctx, "p1", "k", "content", "", nil)
	require.NoError(t, err)

	e.sweepOnce(time.Hour)

	assert.NotEmpty(t, e.ListProjectData("p1"))
}

func TestStartSweepNoOpWhenDisabled(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Sweep.Enabled = false
	e := New(cfg, arbor.NewLogger(), &fakeEmbedder{})

	stop := e.StartSweep()
	require.NotNil(t, stop)
	stop() // must not panic
}

func TestResendFreshSnapshotClearsLaggingAndResetsCursor(t *testing.T) {
	e := testEngine()
	ctx := context.Background()
	_, err := e.Register(ctx, "agent1", "p1", []string{"coding style"}, models.NotificationBroker, "", "", 0, false)
	require.NoError(t, err)
	_, err = e.Publish(ctx, "p1", "k", "content", "", nil)
	require.NoError(t, err)

	agent, ok := e.agentOf("p1", "agent1")
	require.True(t, ok)
	agent.Lagging = true

	e.resendFreshSnapshot("p1", "agent1")

	assert.False(t, agent.Lagging)
	assert.Equal(t, int64(1), agent.LastSeenSequence)
}
