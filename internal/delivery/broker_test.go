package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/models"
)

func TestBrokerSinkDeliversToRegisteredConnection(t *testing.T) {
	sink := NewBrokerSink(arbor.NewLogger())
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		sink.Register("agent:p1:a1", conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the connection.
	time.Sleep(20 * time.Millisecond)

	agent := &models.Agent{ProjectID: "p1", AgentID: "a1"}
	err = sink.Deliver(context.Background(), agent, models.Event{Payload: map[string]any{"ok": true}})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "agent:p1:a1")
}

func TestBrokerSinkBestEffortWhenNoConnection(t *testing.T) {
	sink := NewBrokerSink(arbor.NewLogger())
	agent := &models.Agent{ProjectID: "p1", AgentID: "unknown"}
	err := sink.Deliver(context.Background(), agent, models.Event{})
	assert.NoError(t, err)
}

func TestBrokerSinkUnregisterRemovesConnection(t *testing.T) {
	sink := NewBrokerSink(arbor.NewLogger())
	sink.Register("agent:p1:a1", nil)
	sink.Unregister("agent:p1:a1", nil)

	agent := &models.Agent{ProjectID: "p1", AgentID: "a1"}
	err := sink.Deliver(context.Background(), agent, models.Event{})
	assert.NoError(t, err)
}
