// Package delivery implements C7: the broker and webhook sinks, and the
// per-agent ordered delivery queues that front them (§4.7).
package delivery

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/models"
)

// wireMessage is the envelope written to every broker-connected client,
// mirroring the teacher's WSMessage{Type, Payload} shape.
type wireMessage struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// BrokerSink fans notifications out over a process-local WebSocket hub,
// grounded on the teacher's internal/handlers/websocket.go connection
// registry (one mutex-guarded map of conn -> per-conn write mutex). It is
// best-effort: an agent with no open connection on its channel simply
// receives nothing (§4.7).
type BrokerSink struct {
	logger arbor.ILogger

	mu      sync.RWMutex
	conns   map[string]map[*websocket.Conn]*sync.Mutex // channel -> conn -> write mutex
}

func NewBrokerSink(logger arbor.ILogger) *BrokerSink {
	return &BrokerSink{
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]*sync.Mutex),
	}
}

// Register attaches an upgraded connection to a broker channel. The caller
// (an HTTP handler) owns the connection's read loop and must call
// Unregister on disconnect.
func (s *BrokerSink) Register(channel string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[channel] == nil {
		s.conns[channel] = make(map[*websocket.Conn]*sync.Mutex)
	}
	s.conns[channel][conn] = &sync.Mutex{}
}

// Unregister removes a connection from its channel.
func (s *BrokerSink) Unregister(channel string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns[channel], conn)
	if len(s.conns[channel]) == 0 {
		delete(s.conns, channel)
	}
}

// Deliver writes event to every connection currently registered on the
// agent's broker channel. A write failure on one connection does not
// affect delivery to others, and never fails the publish path: the
// broker sink has no retry, matching §4.7's "best-effort" contract.
func (s *BrokerSink) Deliver(ctx context.Context, agent *models.Agent, event models.Event) error {
	channel := agent.BrokerChannelName()

	data, err := json.Marshal(wireMessage{Channel: channel, Payload: event.Payload})
	if err != nil {
		return err
	}

	s.mu.RLock()
	targets := s.conns[channel]
	conns := make([]*websocket.Conn, 0, len(targets))
	mutexes := make([]*sync.Mutex, 0, len(targets))
	for conn, mu := range targets {
		conns = append(conns, conn)
		mutexes = append(mutexes, mu)
	}
	s.mu.RUnlock()

	for i, conn := range conns {
		mu := mutexes[i]
		mu.Lock()
		writeErr := conn.WriteMessage(websocket.TextMessage, data)
		mu.Unlock()
		if writeErr != nil {
			s.logger.Warn().Err(writeErr).Str("channel", channel).Msg("broker write failed, dropping connection")
			s.Unregister(channel, conn)
		}
	}
	return nil
}
