package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/delivery"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// BrokerHandler upgrades connections onto the canonical broker channel
// name "agent:{project}:{agent_id}" (§6), grounded on the teacher's
// internal/handlers/websocket.go upgrade-and-register pattern.
type BrokerHandler struct {
	broker *delivery.BrokerSink
	logger arbor.ILogger
}

func NewBrokerHandler(broker *delivery.BrokerSink, logger arbor.ILogger) *BrokerHandler {
	return &BrokerHandler{broker: broker, logger: logger}
}

// Subscribe serves GET /ws/agent/{project_id}/{agent_id}, registering the
// connection on its channel until it disconnects. The handler owns the
// read loop solely to detect disconnects; it never expects inbound
// application messages from subscribers.
func (h *BrokerHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/agent/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "expected /ws/agent/{project_id}/{agent_id}", http.StatusBadRequest)
		return
	}
	channel := "agent:" + parts[0] + ":" + parts[1]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("channel", channel).Msg("websocket upgrade failed")
		return
	}

	h.broker.Register(channel, conn)
	h.logger.Info().Str("channel", channel).Msg("broker subscriber connected")

	defer func() {
		h.broker.Unregister(channel, conn)
		conn.Close()
		h.logger.Info().Str("channel", channel).Msg("broker subscriber disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
